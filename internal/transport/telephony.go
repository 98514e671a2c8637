package transport

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/voxcore/voxcore/internal/audio"
	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
	"github.com/voxcore/voxcore/internal/voice/session"
)

var telephonyUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// telephonyFrame covers every event shape the media-stream protocol
// sends: connected, start, media, stop. Only the fields each event
// actually carries are populated.
type telephonyFrame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid,omitempty"`
	Start     *struct {
		CallSID          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

type telephonyOutboundMedia struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

const (
	telephonySampleRate   = 8000
	internalPCMSampleRate = 16000
)

// TelephonyConn adapts one media-stream connection to session.Transport.
// Audio is resampled and mu-law encoded/decoded at the boundary; control
// messages have no wire equivalent in this protocol and are only logged,
// same as the original implementation's Twilio session logged them
// rather than forwarding them to the caller.
type TelephonyConn struct {
	conn      *websocket.Conn
	streamSID string
	mu        sync.Mutex
}

func (t *TelephonyConn) SendAudio(pcm []byte) {
	if t.streamSID == "" {
		return
	}
	payload := audio.Pcm16ToBase64Mulaw(pcm, internalPCMSampleRate, telephonySampleRate)
	out := telephonyOutboundMedia{Event: "media", StreamSID: t.streamSID}
	out.Media.Payload = payload

	data, err := sonic.Marshal(out)
	if err != nil {
		logger.WithComponent("transport-telephony").Warn().Err(err).Msg("media marshal failed")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.WithComponent("transport-telephony").Warn().Err(err).Msg("media write failed")
	}
}

func (t *TelephonyConn) SendControl(msg session.ControlMessage) {
	logger.WithComponent("transport-telephony").Debug().Str("type", msg.Type).Msg("session control event (not forwarded to caller)")
}

// TelephonyHandler drives one media-stream WebSocket per inbound or
// outbound call leg, resolving the call row and its agent from the
// provider's call sid carried in the start event.
type TelephonyHandler struct {
	calls  *repository.CallRepository
	agents *repository.AgentRepository
	deps   session.Deps
}

func NewTelephonyHandler(calls *repository.CallRepository, agents *repository.AgentRepository, deps session.Deps) *TelephonyHandler {
	return &TelephonyHandler{calls: calls, agents: agents, deps: deps}
}

func (h *TelephonyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("transport-telephony")

	conn, err := telephonyUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	tc := &TelephonyConn{conn: conn}
	var sess *session.Session

	defer func() {
		if sess != nil {
			sess.End("telephony_disconnect")
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame telephonyFrame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "start":
			tc.streamSID = frame.StreamSID
			callSID := ""
			if frame.Start != nil {
				callSID = frame.Start.CallSID
				if callSID == "" {
					callSID = frame.Start.CustomParameters["callSid"]
				}
			}

			call, err := h.calls.GetByExternalSID(callSID)
			if err != nil {
				log.Warn().Err(err).Str("call_sid", callSID).Msg("no call row for stream start")
				continue
			}
			agent, err := h.agents.GetByID(call.AgentID)
			if err != nil {
				log.Warn().Err(err).Str("agent_id", call.AgentID.String()).Msg("agent not found for call")
				agent = models.DefaultAgent()
			}

			sess = session.New(h.deps, tc, agent, &call.ID)
			if err := sess.Start(); err != nil {
				log.Error().Err(err).Msg("session start failed")
				sess = nil
				return
			}
			go sess.Run()

		case "media":
			if sess == nil || frame.Media == nil || frame.Media.Payload == "" {
				continue
			}
			pcm, err := audio.Base64MulawToPcm16(frame.Media.Payload, telephonySampleRate, internalPCMSampleRate)
			if err != nil {
				continue
			}
			sess.HandleAudio(pcm)

		case "stop":
			if sess != nil {
				sess.End("caller_hung_up")
			}
			return
		}
	}
}
