package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsProvider is the primary TTS provider: streamed PCM16@16kHz
// straight off the wire, no resampling needed.
type ElevenLabsProvider struct {
	apiKey         string
	defaultVoiceID string
	modelID        string
	client         *http.Client
}

func NewElevenLabsProvider(apiKey, defaultVoiceID string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:         apiKey,
		defaultVoiceID: defaultVoiceID,
		modelID:        "eleven_flash_v2_5",
		client:         &http.Client{},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs API key not configured")
	}
	voice := voiceID
	if voice == "" {
		voice = p.defaultVoiceID
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": p.modelID,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=pcm_16000&optimize_streaming_latency=4", elevenLabsBaseURL, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs returned status %d", resp.StatusCode)
	}

	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buf := make([]byte, 2048)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return out, nil
}
