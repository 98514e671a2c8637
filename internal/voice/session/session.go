// Package session implements the per-call orchestrator (C8): the state
// machine that fuses STT, LLM streaming with tool calls, and TTS into
// one conversation, with barge-in and transcript persistence.
//
// Grounded on teacher internal/voice/pipeline/pipeline.go's goroutine/
// channel fan-out and Session/sendEvent shape, and on
// original_source/backend/app/voice/session.py's VoiceSession for the
// exact turn-processing semantics: the interrupt-flag barge-in pattern
// and the synthetic "[Called X]" / "Tool result: ..." message pair.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/metrics"
	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/repository"
	"github.com/voxcore/voxcore/internal/voice/llm"
	"github.com/voxcore/voxcore/internal/voice/rag"
	"github.com/voxcore/voxcore/internal/voice/stt"
	"github.com/voxcore/voxcore/internal/voice/tools"
	"github.com/voxcore/voxcore/internal/voice/tts"
)

const finalTranscriptBuffer = 8

// Session is one call's orchestrator instance: one STT connection,
// one conversation, serialized turn processing.
type Session struct {
	id        string
	callID    *uuid.UUID
	agent     *models.Agent
	transport Transport

	sttClient *stt.Client
	ttsChain  *tts.Chain
	llmClient *llm.Client
	executor  *tools.Executor
	retriever *rag.Retriever

	repos   *repository.Repositories
	metrics *metrics.Metrics

	sttConn *stt.Conn

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	messages []llm.Message

	speaking     atomic.Bool
	interruptTTS atomic.Bool
	ended        atomic.Bool

	transcripts chan string
	startedAt   time.Time

	log zerolog.Logger
}

// Deps bundles every collaborator the orchestrator needs, constructed
// once in cmd/server and supplied per call.
type Deps struct {
	STTClient *stt.Client
	TTSChain  *tts.Chain
	LLMClient *llm.Client
	Executor  *tools.Executor
	Retriever *rag.Retriever // nil disables RAG entirely
	Repos     *repository.Repositories
	Metrics   *metrics.Metrics // nil disables metrics recording
}

// New creates a session for one call. agent is the immutable-per-call
// configuration snapshot; callID is nil for calls that should not be
// persisted (e.g. a dry-run transport test).
func New(deps Deps, transport Transport, agent *models.Agent, callID *uuid.UUID) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Session{
		id:          id,
		callID:      callID,
		agent:       agent,
		transport:   transport,
		sttClient:   deps.STTClient,
		ttsChain:    deps.TTSChain,
		llmClient:   deps.LLMClient,
		executor:    deps.Executor,
		retriever:   deps.Retriever,
		repos:       deps.Repos,
		metrics:     deps.Metrics,
		ctx:         ctx,
		cancel:      cancel,
		transcripts: make(chan string, finalTranscriptBuffer),
		startedAt:   time.Now(),
		log:         logger.WithSessionID(id),
	}
}

// Start runs Init -> Loading -> Listening: snapshots the agent config,
// seeds the conversation with the system prompt, opens STT, and emits
// session_started. Callers should run the returned turn-processing loop
// in a goroutine (via Run) once Start succeeds.
func (s *Session) Start() error {
	if s.agent == nil {
		s.agent = models.DefaultAgent()
	}

	s.messages = []llm.Message{{Role: "system", Content: s.agent.SystemPrompt}}

	if s.callID != nil {
		if err := s.repos.Call.UpdateStatus(*s.callID, models.StatusInProgress, ""); err != nil {
			s.log.Warn().Err(err).Msg("failed to mark call in-progress")
		}
	}

	conn, err := s.sttClient.Connect(s.ctx, s.agent.Language, s)
	if err != nil {
		s.transport.SendControl(ControlMessage{Type: msgError, Message: "STT initialization failed"})
		return fmt.Errorf("start session: %w", err)
	}
	s.sttConn = conn
	s.metrics.SessionStarted(s.ctx)

	s.transport.SendControl(ControlMessage{Type: msgSessionStarted, Agent: s.agent.Name})
	s.log.Info().Str("agent", s.agent.Name).Msg("voice session started")
	return nil
}

// Run processes final transcripts one turn at a time until the session
// context is cancelled. Call after Start succeeds.
func (s *Session) Run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case text, ok := <-s.transcripts:
			if !ok {
				return
			}
			s.processTurn(text)
		}
	}
}

// HandleAudio forwards one inbound PCM16@16kHz frame to the recognizer.
// Per original_source's handle_audio, receiving audio while the agent
// is speaking is itself a barge-in signal, ahead of STT producing a
// final transcript for it.
func (s *Session) HandleAudio(frame []byte) {
	if s.speaking.Load() {
		s.interruptTTS.Store(true)
		s.speaking.Store(false)
	}
	if s.sttConn != nil {
		s.sttConn.SendAudio(frame)
	}
}

// OnTranscript implements stt.TranscriptSink.
func (s *Session) OnTranscript(text string, isFinal bool) {
	final := isFinal
	s.transport.SendControl(ControlMessage{Type: msgTranscript, Role: "user", Content: text, IsFinal: boolPtr(final)})

	if !isFinal || strings.TrimSpace(text) == "" {
		return
	}

	if s.speaking.Load() {
		s.interruptTTS.Store(true)
		s.speaking.Store(false)
	}

	select {
	case s.transcripts <- text:
	case <-s.ctx.Done():
	}
}

// End closes STT, persists the call's terminal state, and emits
// session_ended. Safe to call more than once; only the first call has
// effect.
func (s *Session) End(reason string) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}

	if s.sttConn != nil {
		s.sttConn.Close()
	}
	s.cancel()
	s.metrics.SessionEnded(context.Background())

	duration := int(time.Since(s.startedAt).Seconds())
	if s.callID != nil {
		if err := s.repos.Call.End(*s.callID, reason); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist call end")
		}
	}

	s.transport.SendControl(ControlMessage{Type: msgSessionEnded, Reason: reason, Duration: duration})
	s.log.Info().Str("reason", reason).Int("duration_s", duration).Msg("voice session ended")
}

// appendMessage appends to the conversation under the session lock and
// returns a snapshot safe for the caller to range over.
func (s *Session) appendMessage(msg llm.Message) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// recentMessageStrings returns the last n user/assistant messages,
// oldest first, as "role: content" lines. System messages are skipped.
func (s *Session) recentMessageStrings(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var picked []llm.Message
	for i := len(s.messages) - 1; i >= 0 && len(picked) < n; i-- {
		if m := s.messages[i]; m.Role == "user" || m.Role == "assistant" {
			picked = append(picked, m)
		}
	}
	out := make([]string, 0, len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		out = append(out, fmt.Sprintf("%s: %s", picked[i].Role, picked[i].Content))
	}
	return out
}

