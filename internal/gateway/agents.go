package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/team"
)

// ChatRequest is the body of POST /api/agents/{name}/chat and the first
// frame of the websocket stream. Message is shorthand for a single user
// turn and is appended after Messages.
type ChatRequest struct {
	Messages []provider.Message `json:"messages"`
	Message  string             `json:"message,omitempty"`
}

func (c ChatRequest) history() []provider.Message {
	history := c.Messages
	if strings.TrimSpace(c.Message) != "" {
		history = append(history, provider.Message{Role: provider.RoleUser, Content: c.Message})
	}
	return history
}

// TaskRequest is the body of POST /api/agents/{name}/tasks.
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type statusRequest struct {
	Status team.Status `json:"status"`
}

func (g *Gateway) handleListAgents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		agents := g.roster.List(owner)
		if agents == nil {
			agents = []team.Agent{}
		}
		writeJSON(w, http.StatusOK, agents)
	}
}

func (g *Gateway) handleGetAgent() http.HandlerFunc {
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
		writeJSON(w, http.StatusOK, a)
	}
}

func (g *Gateway) handleSetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		var req statusRequest
		if !g.decode(w, r, &req) {
			return
		}
		name := chi.URLParam(r, "name")
		a, err := g.roster.SetStatus(owner, name, req.Status)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		g.audit.Log(security.AuditEvent{
			Type:   security.EventStatusChange,
			Owner:  owner,
			Agent:  a.Name,
			Detail: string(a.Status),
		})
		writeJSON(w, http.StatusOK, a)
	}
}

func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		var req ChatRequest
		if !g.decode(w, r, &req) {
			return
		}
		name := chi.URLParam(r, "name")
		if !g.allow(w, owner, name) {
			return
		}
		run, err := g.runner.Chat(r.Context(), owner, name, req.history(), nil)
		writeRun(w, run, err)
	}
}

func (g *Gateway) handleTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		var req TaskRequest
		if !g.decode(w, r, &req) {
			return
		}
		name := chi.URLParam(r, "name")
		if !g.allow(w, owner, name) {
			return
		}
		run, err := g.runner.Task(r.Context(), owner, name, req.Title, req.Description, nil)
		writeRun(w, run, err)
	}
}

// handleHeartbeat triggers a heartbeat immediately. Quiet hours apply only
// to scheduled ticks.
func (g *Gateway) handleHeartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		name := chi.URLParam(r, "name")
		if !g.allow(w, owner, name) {
			return
		}
		run, err := g.runner.Heartbeat(r.Context(), owner, name)
		writeRun(w, run, err)
	}
}
