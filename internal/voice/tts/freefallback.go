package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"time"
)

const googleTranslateTTSURL = "https://translate.google.com/translate_tts"

// FreeProvider is the last-resort, no-API-key fallback: fetches MP3 from
// a free synthesis endpoint and decodes it to PCM16@16kHz via an ffmpeg
// subprocess, since no pure-Go MP3 decoder exists anywhere in the stack
// this repo is grounded on.
type FreeProvider struct {
	ffmpegPath string
	client     *http.Client
}

func NewFreeProvider(ffmpegPath string) *FreeProvider {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FreeProvider{ffmpegPath: ffmpegPath, client: &http.Client{Timeout: 20 * time.Second}}
}

func (p *FreeProvider) Name() string { return "free" }

func (p *FreeProvider) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	mp3, err := p.fetchMP3(ctx, text)
	if err != nil {
		return nil, err
	}

	pcm, err := p.mp3ToPCM16(ctx, mp3)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		const chunkSize = 4096
		for i := 0; i < len(pcm); i += chunkSize {
			end := i + chunkSize
			if end > len(pcm) {
				end = len(pcm)
			}
			select {
			case out <- pcm[i:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *FreeProvider) fetchMP3(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", "en")
	q.Set("q", text)
	reqURL := googleTranslateTTSURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("free tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("free tts status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func (p *FreeProvider) mp3ToPCM16(ctx context.Context, mp3 []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(mp3)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
