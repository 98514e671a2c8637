package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/voice/llm"
	"github.com/voxcore/voxcore/internal/voice/rag"
	"github.com/voxcore/voxcore/internal/voice/tools"
)

const recentMessagesForWebhookContext = 6

// processTurn runs one Listening -> Thinking -> Speaking -> Listening
// cycle for a single final transcript.
func (s *Session) processTurn(text string) {
	turnStart := time.Now()
	defer func() { s.metrics.RecordTurn(context.Background(), time.Since(turnStart).Seconds()) }()

	s.interruptTTS.Store(false)

	messages := s.appendMessage(llm.Message{Role: "user", Content: text})
	s.persistTranscript(models.RoleUser, text)

	if s.retriever != nil && s.agent.KnowledgeBaseID != nil {
		messages = s.injectRAGContext(messages, text)
	}

	toolSpecs := s.toolSpecsForAgent()

	events, err := s.llmClient.Stream(s.ctx, s.agent.SystemPrompt, messages, s.agent.LLMModel, s.agent.Temperature, s.agent.MaxTokens, toolSpecs)
	if err != nil {
		s.log.Error().Err(err).Msg("LLM stream failed to start")
		s.transport.SendControl(ControlMessage{Type: msgError, Message: "LLM error"})
		return
	}

	sentenceQueue := make(chan string, 32)
	var tts errgroup.Group
	tts.Go(func() error {
		s.runTTSConsumer(sentenceQueue)
		return nil
	})

	var fullResponse strings.Builder
	var sentenceBuffer strings.Builder

	for ev := range events {
		if s.interruptTTS.Load() {
			continue // keep draining to done for bookkeeping; discard output
		}

		switch ev.Type {
		case llm.EventTextDelta:
			fullResponse.WriteString(ev.Content)
			sentenceBuffer.WriteString(ev.Content)
			s.transport.SendControl(ControlMessage{Type: msgTranscript, Role: "assistant", Content: ev.Content, IsFinal: boolPtr(false)})

			complete, rest := extractCompleteSentences(sentenceBuffer.String())
			if len(complete) > 0 {
				sentenceBuffer.Reset()
				sentenceBuffer.WriteString(rest)
				for _, sentence := range complete {
					if sentence == "" {
						continue
					}
					s.enqueueSentence(sentenceQueue, sentence)
				}
			}

		case llm.EventToolCall:
			if remainder := strings.TrimSpace(sentenceBuffer.String()); remainder != "" {
				s.enqueueSentence(sentenceQueue, remainder)
			}
			sentenceBuffer.Reset()

			if ended := s.handleToolCall(ev, sentenceQueue); ended {
				close(sentenceQueue)
				_ = tts.Wait()
				return
			}

		case llm.EventDone:
			// handled after the loop
		}
	}

	if remainder := strings.TrimSpace(sentenceBuffer.String()); remainder != "" {
		s.enqueueSentence(sentenceQueue, remainder)
	}
	close(sentenceQueue)
	_ = tts.Wait()

	// Persisted even after barge-in cut playback short: the conversation
	// keeps everything produced before the interrupt flag was set.
	if response := fullResponse.String(); response != "" {
		s.appendMessage(llm.Message{Role: "assistant", Content: response})
		s.persistTranscript(models.RoleAssistant, response)
		s.transport.SendControl(ControlMessage{Type: msgTranscript, Role: "assistant", Content: response, IsFinal: boolPtr(true)})
	}
}

// enqueueSentence marks the session Speaking and queues one sentence
// for the TTS consumer, blocking only until the queue accepts it.
func (s *Session) enqueueSentence(queue chan<- string, sentence string) {
	s.speaking.Store(true)
	select {
	case queue <- sentence:
	case <-s.ctx.Done():
	}
}

// extractCompleteSentences splits buf at every terminator (. ! ? :)
// that is followed by whitespace or the end of the buffer, returning
// the completed sentences and the trailing partial remainder.
func extractCompleteSentences(buf string) (complete []string, rest string) {
	const terminators = ".!?:"
	start := 0
	for i := 0; i < len(buf); i++ {
		if !strings.ContainsRune(terminators, rune(buf[i])) {
			continue
		}
		atEnd := i+1 == len(buf)
		followedByWhitespace := !atEnd && (buf[i+1] == ' ' || buf[i+1] == '\n' || buf[i+1] == '\t')
		if atEnd || followedByWhitespace {
			complete = append(complete, strings.TrimSpace(buf[start:i+1]))
			start = i + 1
		}
	}
	return complete, buf[start:]
}

// handleToolCall executes one tool call, emits the control message, and
// runs filler speech concurrently when configured. Returns true if the
// call ended the session (action == "end_call").
func (s *Session) handleToolCall(ev llm.StreamEvent, sentenceQueue chan<- string) bool {
	var fillerCancel context.CancelFunc
	var fillerDone chan struct{}

	if !tools.IsBuiltin(ev.ToolName) {
		if fn, ok := s.executor.LookupCustom(ev.ToolName); ok && fn.SpeakDuringExecution != "" {
			fillerCtx, cancel := context.WithCancel(s.ctx)
			fillerCancel = cancel
			fillerDone = make(chan struct{})
			go func() {
				defer close(fillerDone)
				s.speak(fillerCtx, fn.SpeakDuringExecution)
			}()
		}
	}

	recent := s.recentMessageStrings(recentMessagesForWebhookContext)
	result := s.executor.Execute(s.ctx, s.callID, ev.ToolName, ev.ToolArgs, recent)

	if fillerCancel != nil {
		fillerCancel()
		time.Sleep(150 * time.Millisecond)
		<-fillerDone
	}

	s.transport.SendControl(ControlMessage{Type: msgToolCall, Name: ev.ToolName, Args: ev.ToolArgs, Result: result})

	if action, _ := result["action"].(string); action == "end_call" {
		reason, _ := result["reason"].(string)
		if reason == "" {
			reason = "agent_ended"
		}
		s.End(reason)
		return true
	}

	if speakOnFailure, ok := result["_speak_on_failure"].(string); ok && speakOnFailure != "" {
		s.enqueueSentence(sentenceQueue, speakOnFailure)
	}

	s.appendMessage(llm.Message{Role: "assistant", Content: fmt.Sprintf("[Called %s]", ev.ToolName)})
	s.appendMessage(llm.Message{Role: "user", Content: fmt.Sprintf("Tool result: %v", result)})
	return false
}

func (s *Session) toolSpecsForAgent() []llm.ToolSpec {
	var custom []models.CustomFunction
	for _, name := range s.agent.ToolsEnabled {
		if tools.IsBuiltin(name) {
			continue
		}
		if fn, ok := s.executor.LookupCustom(name); ok {
			custom = append(custom, *fn)
		}
	}
	return tools.SpecsForAgent(s.agent.ToolsEnabled, custom)
}

func (s *Session) injectRAGContext(messages []llm.Message, utterance string) []llm.Message {
	kb, err := s.repos.KnowledgeBase.GetByID(*s.agent.KnowledgeBaseID)
	if err != nil {
		s.log.Debug().Err(err).Msg("knowledge base not found, skipping RAG")
		return messages
	}

	ragContext, ok, err := s.retriever.Retrieve(s.ctx, kb, utterance)
	if err != nil {
		s.log.Warn().Err(err).Msg("RAG retrieval failed")
		return messages
	}
	if !ok {
		return messages
	}

	return rag.InjectBeforeLastUser(messages, ragContext)
}

func (s *Session) persistTranscript(role models.TranscriptRole, content string) {
	if s.callID == nil {
		return
	}
	entry := &models.TranscriptEntry{
		CallID:    *s.callID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := s.repos.TranscriptEntry.Create(entry); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist transcript entry")
	}
}
