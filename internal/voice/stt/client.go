// Package stt implements the streaming speech-to-text client (C2):
// a thin websocket wrapper around a Deepgram-compatible realtime
// recognizer, reporting transcripts to an abstract sink owned by the
// session orchestrator (spec.md §9: "session owns STT; STT holds a
// handle to an abstract TranscriptSink interface implemented by the
// session" — avoids an ownership cycle).
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/voxcore/voxcore/internal/logger"
)

const (
	realtimeURL    = "wss://api.deepgram.com/v1/listen"
	sampleRate     = 16000
	encoding       = "linear16"
	model          = "nova-2"
	endpointingMS  = 300
)

// TranscriptSink receives non-empty transcripts as they're produced.
// isFinal is true when the recognizer declares the utterance complete.
type TranscriptSink interface {
	OnTranscript(text string, isFinal bool)
}

// Client dials a Deepgram-compatible realtime recognizer.
type Client struct {
	apiKey string
}

func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

// Conn is one call's STT connection: scoped, closed on session end.
type Conn struct {
	conn      *websocket.Conn
	connected atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Connect establishes the recognizer. On failure the caller (the
// session) must surface an error and not proceed past startup.
func (c *Client) Connect(ctx context.Context, language string, sink TranscriptSink) (*Conn, error) {
	log := logger.WithComponent("stt")

	if c.apiKey == "" {
		return nil, fmt.Errorf("STT API key not configured")
	}

	q := url.Values{}
	q.Set("language", language)
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("encoding", encoding)
	q.Set("channels", "1")
	q.Set("model", model)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("endpointing", fmt.Sprintf("%d", endpointingMS))
	q.Set("vad_events", "true")

	dialURL := realtimeURL + "?" + q.Encode()
	header := http.Header{"Authorization": {"Token " + c.apiKey}}

	wsConn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, header)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to STT recognizer")
		return nil, fmt.Errorf("stt connect: %w", err)
	}

	conn := &Conn{conn: wsConn, done: make(chan struct{})}
	conn.connected.Store(true)

	go conn.receiveLoop(sink)

	log.Debug().Str("language", language).Msg("STT connected")
	return conn, nil
}

func (conn *Conn) receiveLoop(sink TranscriptSink) {
	log := logger.WithComponent("stt")
	defer conn.connected.Store(false)
	defer close(conn.done)

	for {
		_, message, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err) {
				log.Debug().Err(err).Msg("STT connection closed")
			}
			return
		}

		var response struct {
			Channel struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channel"`
			IsFinal bool `json:"is_final"`
		}
		if err := json.Unmarshal(message, &response); err != nil {
			continue
		}
		if len(response.Channel.Alternatives) == 0 {
			continue
		}
		text := response.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}
		sink.OnTranscript(text, response.IsFinal)
	}
}

// SendAudio forwards a raw PCM16@16kHz frame. Non-blocking: silently
// drops the frame if not connected.
func (conn *Conn) SendAudio(frame []byte) {
	if !conn.connected.Load() {
		return
	}
	if err := conn.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		conn.connected.Store(false)
	}
}

// Close sends a graceful termination message then tears down the
// transport. Safe to call more than once.
func (conn *Conn) Close() {
	conn.closeOnce.Do(func() {
		if conn.connected.Load() {
			_ = conn.conn.WriteJSON(map[string]string{"type": "CloseStream"})
		}
		conn.conn.Close()
	})
}

// Connected reports whether the recognizer transport is currently up.
func (conn *Conn) Connected() bool {
	return conn.connected.Load()
}
