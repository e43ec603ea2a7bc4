// Package trigger loads and compiles the declarative pattern -> action table.
package trigger

import (
	"regexp"
	"sort"

	"github.com/antredesloutres/otternel/internal/domain"
)

// Trigger is a compiled trigger definition. Immutable once built.
type Trigger struct {
	Name    string // diagnostics only
	Pattern *regexp.Regexp
	Action  string // passed verbatim to the action boundary

	scope  map[domain.SourceID]struct{}
	scoped bool
}

// Scoped reports whether the trigger is restricted to a set of sources
func (t Trigger) Scoped() bool {
	return t.scoped
}

// ScopeIDs returns the sorted source ids the trigger is restricted to
func (t Trigger) ScopeIDs() []domain.SourceID {
	ids := make([]domain.SourceID, 0, len(t.scope))
	for id := range t.scope {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AppliesTo reports whether the trigger may fire for the given source.
// A file without a numeric id only ever satisfies unscoped triggers.
func (t Trigger) AppliesTo(source domain.SourceID, hasSource bool) bool {
	if !t.scoped {
		return true
	}
	if !hasSource {
		return false
	}
	_, ok := t.scope[source]
	return ok
}

// Matches reports whether line matches the pattern and the source is in scope
func (t Trigger) Matches(line string, source domain.SourceID, hasSource bool) bool {
	return t.AppliesTo(source, hasSource) && t.Pattern.MatchString(line)
}
