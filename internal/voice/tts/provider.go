// Package tts implements the text-to-speech client (C3): a provider
// fallback chain over streaming synthesis, normalized to PCM16@16kHz
// chunks of ~2-4KB so barge-in can cancel within about 50ms.
package tts

import (
	"context"

	"github.com/voxcore/voxcore/internal/logger"
	"github.com/voxcore/voxcore/internal/metrics"
)

// Provider synthesizes one utterance to a stream of PCM16@16kHz chunks.
// Implementations must close the returned channel when synthesis ends
// (success, empty result, or failure).
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error)
}

// Chain tries providers in declared order, falling through on failure or
// empty output. Subsequent chunks from a later provider are never
// interleaved with an earlier provider's output within one Synthesize
// call: the chain commits to the first provider that yields at least one
// non-empty chunk.
type Chain struct {
	providers []Provider
	metrics   *metrics.Metrics
}

func NewChain(m *metrics.Metrics, providers ...Provider) *Chain {
	return &Chain{providers: providers, metrics: m}
}

// Synthesize tries each provider until one yields a non-empty chunk,
// then streams the rest of that provider's output exclusively.
func (c *Chain) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	log := logger.WithComponent("tts")
	out := make(chan []byte, 32)

	go func() {
		defer close(out)

		for _, p := range c.providers {
			chunks, err := p.Synthesize(ctx, text, voiceID)
			if err != nil {
				log.Warn().Err(err).Str("provider", p.Name()).Msg("TTS provider failed, trying next")
				c.metrics.RecordTTSFallback(ctx, p.Name())
				continue
			}

			first, ok := <-chunks
			if !ok || len(first) == 0 {
				log.Debug().Str("provider", p.Name()).Msg("TTS provider produced no output, trying next")
				c.metrics.RecordTTSFallback(ctx, p.Name())
				continue
			}

			select {
			case out <- first:
			case <-ctx.Done():
				return
			}
			for chunk := range chunks {
				if len(chunk) == 0 {
					continue
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			return
		}
		log.Warn().Msg("All TTS providers exhausted with no output")
	}()

	return out, nil
}
