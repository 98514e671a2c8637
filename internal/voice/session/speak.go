package session

import "context"

// runTTSConsumer dequeues sentences one at a time and speaks each in
// turn until the queue is closed or the interrupt flag is set. FIFO: a
// sentence begins only after the previous one completes or is
// interrupted.
func (s *Session) runTTSConsumer(queue <-chan string) {
	defer s.speaking.Store(false)

	for sentence := range queue {
		if s.interruptTTS.Load() {
			continue
		}
		s.speak(s.ctx, sentence)
	}
}

// speak streams one sentence through the TTS fallback chain to the
// transport's audio sink, checking the interrupt flag between chunks so
// barge-in can cut it off mid-sentence.
func (s *Session) speak(ctx context.Context, text string) {
	chunks, err := s.ttsChain.Synthesize(ctx, text, s.agent.VoiceID)
	if err != nil {
		s.log.Warn().Err(err).Msg("TTS synthesis failed")
		return
	}

	for chunk := range chunks {
		if s.interruptTTS.Load() {
			return
		}
		s.transport.SendAudio(chunk)
	}
}
