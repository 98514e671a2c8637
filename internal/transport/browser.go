// Package transport adapts the session orchestrator's uniform
// Transport interface to each inbound wire protocol: a browser
// WebSocket speaking raw PCM16, a telephony provider's media-stream
// WebSocket speaking base64 mu-law, and (optionally) an SFU room.
//
// Grounded on teacher internal/api/voice_handler.go's upgrade/agent
// lookup shape and internal/voice/pipeline/pipeline.go's read-loop and
// mutex-guarded sendEvent pattern.
package transport

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
	"github.com/voxcore/voxcore/internal/voice/session"
)

var browserUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// browserTextFrame is the control-channel shape a browser client sends:
// either base64 PCM16 audio or an end-of-call signal.
type browserTextFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// BrowserConn adapts one gorilla/websocket connection to
// session.Transport. Binary frames out are raw PCM16@16kHz; control
// events out are JSON text frames.
type BrowserConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (b *BrowserConn) SendAudio(pcm []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		logger.WithComponent("transport-browser").Warn().Err(err).Msg("audio write failed")
	}
}

// SendControl is the hot path for every transcript/tool/lifecycle event
// a call produces, so it encodes with bytedance/sonic rather than
// encoding/json.
func (b *BrowserConn) SendControl(msg session.ControlMessage) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		logger.WithComponent("transport-browser").Warn().Err(err).Msg("control marshal failed")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.WithComponent("transport-browser").Warn().Err(err).Msg("control write failed")
	}
}

// BrowserHandler upgrades /ws/voice/{agentId} connections and drives a
// session for each one until the client disconnects or sends "end".
type BrowserHandler struct {
	agents *repository.AgentRepository
	calls  *repository.CallRepository
	deps   session.Deps
}

func NewBrowserHandler(agents *repository.AgentRepository, calls *repository.CallRepository, deps session.Deps) *BrowserHandler {
	return &BrowserHandler{agents: agents, calls: calls, deps: deps}
}

func (h *BrowserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("transport-browser")

	agentID, err := uuid.Parse(chi.URLParam(r, "agentId"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	agent, err := h.agents.GetByID(agentID)
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	if !agent.IsActive {
		http.Error(w, "agent is not active", http.StatusForbidden)
		return
	}

	conn, err := browserUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	call := &models.Call{
		AgentID:   agent.ID,
		Direction: models.DirectionBrowser,
		Status:    models.StatusInProgress,
		StartedAt: time.Now(),
	}
	if err := h.calls.Create(call); err != nil {
		log.Error().Err(err).Msg("failed to create call row")
		return
	}

	bc := &BrowserConn{conn: conn}
	sess := session.New(h.deps, bc, agent, &call.ID)
	if err := sess.Start(); err != nil {
		log.Error().Err(err).Msg("session start failed")
		return
	}
	go sess.Run()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			sess.HandleAudio(data)
		case websocket.TextMessage:
			var frame browserTextFrame
			if jsonErr := sonic.Unmarshal(data, &frame); jsonErr != nil {
				continue
			}
			switch frame.Type {
			case "audio":
				pcm, decErr := base64.StdEncoding.DecodeString(frame.Data)
				if decErr == nil {
					sess.HandleAudio(pcm)
				}
			case "end":
				sess.End("client_requested")
				return
			}
		}
	}

	sess.End("browser_disconnect")
}
