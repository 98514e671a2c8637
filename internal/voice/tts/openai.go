package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxcore/voxcore/internal/audio"
)

const (
	openaiSpeechURL    = "https://api.openai.com/v1/audio/speech"
	openaiSourceRate   = 24000
	openaiChunkBytes   = 6000
	openaiMinFlushSize = 600
)

// OpenAIProvider is the fallback after ElevenLabs and Cartesia in the
// chain cmd/server builds: OpenAI's speech endpoint returns raw PCM16 at
// 24kHz, resampled here to 16kHz.
type OpenAIProvider struct {
	apiKey string
	voice  string
	client *http.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, voice: "alloy", client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}

	body, _ := json.Marshal(map[string]any{
		"model":           "tts-1",
		"input":           text,
		"voice":           p.voice,
		"response_format": "pcm",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiSpeechURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai tts request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("openai tts status %d: %s", resp.StatusCode, b)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var buf bytes.Buffer
		chunk := make([]byte, 8192)
		for {
			n, readErr := resp.Body.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				for buf.Len() >= openaiMinFlushSize {
					take := buf.Len()
					if take > openaiChunkBytes {
						take = openaiChunkBytes
					}
					take -= take % 2
					if take == 0 {
						break
					}
					raw := make([]byte, take)
					copy(raw, buf.Bytes()[:take])
					buf.Next(take)

					pcm16k := audio.ResampleLinear(raw, openaiSourceRate, 16000)
					select {
					case out <- pcm16k:
					case <-ctx.Done():
						return
					}
				}
			}
			if readErr != nil {
				break
			}
		}
		if buf.Len() >= 4 {
			pcm16k := audio.ResampleLinear(buf.Bytes(), openaiSourceRate, 16000)
			select {
			case out <- pcm16k:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
