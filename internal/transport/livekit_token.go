package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/livekit/protocol/auth"
	livekitpb "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/google/uuid"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
)

type tokenRequest struct {
	AgentID         string `json:"agent_id"`
	ParticipantName string `json:"participant_name"`
}

type tokenResponse struct {
	Token      string `json:"token"`
	RoomName   string `json:"room_name"`
	LiveKitURL string `json:"livekit_url"`
	CallID     string `json:"call_id"`
}

// LiveKitTokenHandler answers the browser's room-join request: it
// creates the Call row, creates a LiveKit room carrying {agent_id,
// call_id} as metadata (so the joining agent worker — SFUHandler —
// can resolve its configuration the same way livekit_agent.py's
// entrypoint does), and returns a participant token for the browser.
// Grounded on original_source/backend/app/services/livekit_service.py
// and routers/livekit.py's /token handler.
type LiveKitTokenHandler struct {
	calls     *repository.CallRepository
	agents    *repository.AgentRepository
	rooms     *lksdk.RoomServiceClient
	sfu       *SFUHandler
	url       string
	apiKey    string
	apiSecret string
}

func NewLiveKitTokenHandler(url, apiKey, apiSecret string, calls *repository.CallRepository, agents *repository.AgentRepository, sfu *SFUHandler) *LiveKitTokenHandler {
	return &LiveKitTokenHandler{
		calls:     calls,
		agents:    agents,
		rooms:     lksdk.NewRoomServiceClient(url, apiKey, apiSecret),
		sfu:       sfu,
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

func (h *LiveKitTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("transport-livekit")

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ParticipantName == "" {
		req.ParticipantName = "user"
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		http.Error(w, "invalid agent_id", http.StatusBadRequest)
		return
	}
	agent, err := h.agents.GetByID(agentID)
	if err != nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	call := &models.Call{
		AgentID:   agent.ID,
		Direction: models.DirectionBrowser,
		Status:    models.StatusInProgress,
		StartedAt: time.Now(),
	}
	if err := h.calls.Create(call); err != nil {
		log.Error().Err(err).Msg("failed to create call row")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	roomName := fmt.Sprintf("agent-%s-%s", agent.ID.String(), randomHex(4))
	metadata, _ := json.Marshal(roomMetadata{AgentID: agent.ID.String(), CallID: call.ID.String()})

	ctx := r.Context()
	if _, err := h.rooms.CreateRoom(ctx, &livekitpb.CreateRoomRequest{
		Name:         roomName,
		Metadata:     string(metadata),
		EmptyTimeout: 300,
	}); err != nil {
		log.Error().Err(err).Msg("failed to create livekit room")
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	if h.sfu != nil {
		go func() {
			if err := h.sfu.JoinRoom(context.Background(), roomName); err != nil {
				log.Error().Err(err).Str("room", roomName).Msg("agent failed to join room")
			}
		}()
	}

	token := auth.NewAccessToken(h.apiKey, h.apiSecret).
		SetIdentity(fmt.Sprintf("user-%s", randomHex(4))).
		SetName(req.ParticipantName).
		AddGrant(&auth.VideoGrant{RoomJoin: true, Room: roomName})
	jwt, err := token.ToJWT()
	if err != nil {
		log.Error().Err(err).Msg("failed to mint participant token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{
		Token:      jwt,
		RoomName:   roomName,
		LiveKitURL: h.url,
		CallID:     call.ID.String(),
	})
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
