package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/security"
)

// Stream frame types sent by the server.
const (
	FrameEvent = "event"
	FrameRun   = "run"
	FrameError = "error"
)

// StreamFrame is one server-to-client websocket message.
type StreamFrame struct {
	Type  string       `json:"type"`
	Event *agent.Event `json:"event,omitempty"`
	Run   *memory.Run  `json:"run,omitempty"`
	Error string       `json:"error,omitempty"`
}

// handleChatStream upgrades to a websocket, reads one ChatRequest frame,
// forwards every loop event as it happens and ends with a run or error
// frame before closing.
func (g *Gateway) handleChatStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := g.owner(w, r)
		if !ok {
			return
		}
		name := chi.URLParam(r, "name")
		if !g.allow(w, owner, name) {
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer func() { _ = conn.CloseNow() }()
		conn.SetReadLimit(int64(g.config.MaxBodySize))

		ctx := r.Context()
		req, err := readChatRequest(ctx, conn)
		if err != nil {
			_ = wsjson.Write(ctx, conn, StreamFrame{Type: FrameError, Error: err.Error()})
			_ = conn.Close(websocket.StatusUnsupportedData, "invalid chat request")
			return
		}

		obs := func(e agent.Event) {
			if err := wsjson.Write(ctx, conn, StreamFrame{Type: FrameEvent, Event: &e}); err != nil {
				g.logger.Debug("websocket event dropped", "agent", name, "event", e.Type, "error", err)
			}
		}

		run, err := g.runner.Chat(ctx, owner, name, req.history(), obs)
		final := StreamFrame{Type: FrameRun, Run: &run}
		if err != nil {
			final = StreamFrame{Type: FrameError, Error: err.Error()}
			if run.ID != "" {
				final.Run = &run
			}
		}
		if err := wsjson.Write(ctx, conn, final); err != nil {
			g.logger.Warn("websocket final frame failed", "agent", name, "error", err)
			return
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func readChatRequest(ctx context.Context, conn *websocket.Conn) (ChatRequest, error) {
	var req ChatRequest
	_, data, err := conn.Read(ctx)
	if err != nil {
		return req, err
	}
	if err := security.ValidateJSONDepth(data, security.DefaultMaxJSONDepth); err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	return req, nil
}
