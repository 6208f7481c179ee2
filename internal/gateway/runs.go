package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/crew/internal/memory"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// handleGetRun returns one run. Runs of another owner are reported as not
// found.
func (g *Gateway) handleGetRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		run, err := g.runs.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if run.Owner != owner {
			writeError(w, http.StatusNotFound, memory.ErrRunNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

// handleListRuns returns the agent's most recent runs, newest first.
func (g *Gateway) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		a, err := g.roster.Get(owner, chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		limit := defaultRunLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxRunLimit)
		}

		runs, err := g.runs.List(r.Context(), owner, a.Name, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []memory.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}
