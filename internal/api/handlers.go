package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type triggerResponse struct {
	Name    string   `json:"name,omitempty"`
	Pattern string   `json:"pattern"`
	Action  string   `json:"action"`
	Scope   []uint32 `json:"scope"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := s.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleTriggers(w http.ResponseWriter, _ *http.Request) {
	triggers := s.triggers.Triggers()
	out := make([]triggerResponse, 0, len(triggers))

	for _, t := range triggers {
		tr := triggerResponse{
			Name:    t.Name,
			Pattern: t.Pattern.String(),
			Action:  t.Action,
		}
		if t.Scoped() {
			tr.Scope = make([]uint32, 0)
			for _, id := range t.ScopeIDs() {
				tr.Scope = append(tr.Scope, uint32(id))
			}
		}
		out = append(out, tr)
	}

	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
