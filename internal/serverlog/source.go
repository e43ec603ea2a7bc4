package serverlog

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antredesloutres/otternel/internal/domain"
)

// logExt is the only extension the watch loop reacts to
const logExt = ".log"

// ParseSourceID extracts the numeric source id from a file name: "/srv/logs/5.log" -> 5.
// ok is false for non-numeric names.
func ParseSourceID(path string) (domain.SourceID, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	id, err := strconv.ParseUint(stem, 10, 32)
	if err != nil {
		return 0, false
	}
	return domain.SourceID(id), true
}

// isLogFile reports whether path has the .log extension
func isLogFile(path string) bool {
	return filepath.Ext(path) == logExt
}
