package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxcore/voxcore/internal/logger"
)

const (
	cartesiaWebsocketURL = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion      = "2024-06-10"
	cartesiaModel        = "sonic-3"
	cartesiaSampleRate   = 16000
)

// CartesiaProvider is a low-latency neural TTS provider reached over
// websocket; cmd/server places it second in the chain, after ElevenLabs.
type CartesiaProvider struct {
	apiKey         string
	defaultVoiceID string
}

func NewCartesiaProvider(apiKey, defaultVoiceID string) *CartesiaProvider {
	return &CartesiaProvider{apiKey: apiKey, defaultVoiceID: defaultVoiceID}
}

func (p *CartesiaProvider) Name() string { return "cartesia" }

func (p *CartesiaProvider) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	log := logger.WithComponent("tts.cartesia")

	if p.apiKey == "" {
		return nil, fmt.Errorf("cartesia API key not configured")
	}
	if voiceID == "" {
		voiceID = p.defaultVoiceID
	}

	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("cartesia_version", cartesiaVersion)
	dialURL := cartesiaWebsocketURL + "?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cartesia dial: %w", err)
	}

	out := make(chan []byte, 16)
	contextID := fmt.Sprintf("ctx_%d", time.Now().UnixMilli())

	var connFailed atomic.Bool
	done := make(chan struct{})
	var doneOnce sync.Once
	closeDone := func() { doneOnce.Do(func() { close(done) }) }

	payload := map[string]any{
		"model_id": cartesiaModel,
		"transcript": text,
		"voice": map[string]any{
			"mode": "id",
			"id":   voiceID,
		},
		"output_format": map[string]any{
			"container":   "raw",
			"encoding":    "pcm_s16le",
			"sample_rate": cartesiaSampleRate,
		},
		"context_id": contextID,
		"language":   "en",
		"continue":   false,
	}

	go func() {
		defer closeDone()
		defer time.Sleep(500 * time.Millisecond)

		if err := conn.WriteJSON(payload); err != nil {
			log.Warn().Err(err).Msg("cartesia send failed")
			connFailed.Store(true)
		}
	}()

	go func() {
		defer close(out)
		defer conn.Close()

		for {
			timeout := 100 * time.Millisecond
			select {
			case <-done:
				timeout = 2 * time.Second
			default:
			}
			conn.SetReadDeadline(time.Now().Add(timeout))

			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
					return
				default:
					if connFailed.Load() {
						return
					}
					continue
				}
			}

			var msg struct {
				Type      string `json:"type"`
				Data      string `json:"data"`
				ContextID string `json:"context_id"`
				Done      bool   `json:"done"`
				Error     string `json:"error"`
			}
			if err := json.Unmarshal(message, &msg); err != nil {
				continue
			}
			if msg.Error != "" {
				log.Warn().Str("error", msg.Error).Msg("cartesia returned error")
				return
			}
			if msg.Type == "chunk" && msg.Data != "" {
				raw, err := base64.StdEncoding.DecodeString(msg.Data)
				if err == nil {
					select {
					case out <- raw:
					default:
					}
				}
			}
			if msg.Done {
				return
			}
		}
	}()

	return out, nil
}
