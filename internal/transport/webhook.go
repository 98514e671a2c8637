package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
)

// TelephonyWebhookHandler answers a telephony provider's inbound-call
// and asynchronous status callbacks. Grounded on
// original_source/backend/app/routers/twilio_webhooks.py: agent
// resolution by called number with an active-agent fallback, and the
// status callback's call-row update outside the WS session lifecycle.
type TelephonyWebhookHandler struct {
	calls  *repository.CallRepository
	agents *repository.AgentRepository
	wsURL  string // wss://host/ws/voice-telephony
}

func NewTelephonyWebhookHandler(calls *repository.CallRepository, agents *repository.AgentRepository, appURL string) *TelephonyWebhookHandler {
	return &TelephonyWebhookHandler{calls: calls, agents: agents, wsURL: toWebSocketURL(appURL) + "/ws/voice-telephony"}
}

func toWebSocketURL(appURL string) string {
	if len(appURL) >= 5 && appURL[:5] == "https" {
		return "wss" + appURL[5:]
	}
	if len(appURL) >= 4 && appURL[:4] == "http" {
		return "ws" + appURL[4:]
	}
	return appURL
}

// Incoming handles the inbound-call webhook: resolves the answering
// agent, creates the ringing Call row, and returns TwiML connecting the
// call to the media-stream WebSocket.
func (h *TelephonyWebhookHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("transport-webhook")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callSID := r.FormValue("CallSid")
	caller := r.FormValue("From")
	called := r.FormValue("To")

	agent, err := h.agents.ResolveForCalledNumber(called)
	if err != nil {
		log.Warn().Err(err).Str("to", called).Msg("no agent resolved for inbound call")
	}

	call := &models.Call{
		Direction:       models.DirectionInbound,
		CallerNumber:    caller,
		ExternalCallSID: callSID,
		Status:          models.StatusRinging,
		StartedAt:       time.Now(),
	}
	if agent != nil {
		call.AgentID = agent.ID
	}
	if err := h.calls.Create(call); err != nil {
		log.Error().Err(err).Msg("failed to create call row for inbound call")
	}

	writeTwiML(w, h.wsURL, callSID)
}

// OutboundConnect handles the answer webhook for a call this system
// placed itself: same TwiML, no new Call row (it was created when the
// outbound call was initiated).
func (h *TelephonyWebhookHandler) OutboundConnect(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	writeTwiML(w, h.wsURL, r.FormValue("CallSid"))
}

func writeTwiML(w http.ResponseWriter, wsURL, callSID string) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Connect>
        <Stream url="%s">
            <Parameter name="callSid" value="%s" />
        </Stream>
    </Connect>
</Response>`, wsURL, callSID)
}

var terminalCallStatuses = map[string]bool{
	"completed": true, "failed": true, "busy": true, "no-answer": true, "canceled": true,
}

// Status handles the provider's asynchronous status callback
// (ringing/in-progress/completed/failed/busy/no-answer/canceled),
// updating the Call row outside the WebSocket session lifecycle — the
// call may already have ended its media stream by the time this lands.
func (h *TelephonyWebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("transport-webhook")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callSID := r.FormValue("CallSid")
	status := r.FormValue("CallStatus")

	call, err := h.calls.GetByExternalSID(callSID)
	if err != nil {
		log.Debug().Str("call_sid", callSID).Msg("status callback for unknown call")
		w.WriteHeader(http.StatusOK)
		return
	}

	endReason := ""
	if terminalCallStatuses[status] {
		endReason = status
	}
	if err := h.calls.UpdateStatus(call.ID, models.CallStatus(status), endReason); err != nil {
		log.Warn().Err(err).Msg("failed to update call status")
	}

	if raw := r.FormValue("CallDuration"); raw != "" && terminalCallStatuses[status] {
		if secs, err := strconv.Atoi(raw); err == nil {
			// Reload so saving the duration does not overwrite the status
			// UpdateStatus just wrote with the stale copy loaded above.
			if fresh, err := h.calls.GetByExternalSID(callSID); err == nil {
				call = fresh
			}
			call.DurationSeconds = &secs
			if err := h.calls.Update(call); err != nil {
				log.Warn().Err(err).Msg("failed to persist provider-reported call duration")
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}
