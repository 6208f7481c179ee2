package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/runner"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
)

// OwnerHeader names the tenant a request acts for.
const OwnerHeader = "X-Crew-Owner"

type errorResponse struct {
	Error string      `json:"error"`
	Run   *memory.Run `json:"run,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// owner resolves the tenant from the header, then the owner query
// parameter, then the configured default. It writes a 400 and returns false
// when none is set.
func (g *Gateway) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		owner = strings.TrimSpace(r.URL.Query().Get("owner"))
	}
	if owner == "" {
		owner = g.config.DefaultOwner
	}
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing "+OwnerHeader+" header")
		return "", false
	}
	return owner, true
}

// allow applies the per-owner run budget.
func (g *Gateway) allow(w http.ResponseWriter, owner, agentName string) bool {
	if err := g.limiter.Allow(owner); err != nil {
		g.audit.Log(security.AuditEvent{
			Type:  security.EventRateLimit,
			Owner: owner,
			Agent: agentName,
		})
		writeError(w, http.StatusTooManyRequests, err.Error())
		return false
	}
	return true
}

// decode reads a bounded JSON body into v, writing the error response on
// failure.
func (g *Gateway) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := security.DecodeJSON(r.Body, g.config.MaxBodySize, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, security.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
	return false
}

// retryAfterSeconds is advertised when the upstream provider is rate
// limited or down.
const retryAfterSeconds = "30"

// statusFor maps a runner or roster error to an HTTP status. Transient
// provider failures are 503, other provider failures 502, and
// configuration faults such as unopenable keys or a missing adapter 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, team.ErrAgentNotFound), errors.Is(err, memory.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrAgentInactive):
		return http.StatusConflict
	case errors.Is(err, runner.ErrEmptyHistory), errors.Is(err, runner.ErrEmptyTask),
		errors.Is(err, runner.ErrInvalidRole), errors.Is(err, team.ErrInvalidAgent):
		return http.StatusBadRequest
	case errors.Is(err, runner.ErrCredentials), errors.Is(err, provider.ErrNoAdapter):
		return http.StatusInternalServerError
	case provider.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// writeRun answers a run-starting request. A failed run that was recorded
// is returned alongside the error so callers keep the partial trace.
func writeRun(w http.ResponseWriter, run memory.Run, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, run)
		return
	}
	resp := errorResponse{Error: err.Error()}
	if run.ID != "" {
		resp.Run = &run
	}
	code := statusFor(err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeJSON(w, code, resp)
}
