package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/voxcore/voxcore/internal/models"
)

const maxWebhookErrorBody = 200

// callWebhook executes a CustomFunction's HTTP call with retry/linear
// backoff, then parses and maps the response.
//
// This is an enrichment over the one-shot webhook call the call-control
// tools started from: retry, backoff, and response_mapping have no
// precedent to follow, so the attempt loop and dotted-path evaluator
// below are original to this package.
func (e *Executor) callWebhook(ctx context.Context, fn models.CustomFunction, args map[string]any, recentMessages []string, callID string) map[string]any {
	body := buildWebhookBody(fn, args, recentMessages, callID)

	attempts := 1 + fn.RetryCount
	var lastErr error
	timeout := time.Duration(fn.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return map[string]any{"error": ctx.Err().Error()}
			}
		}

		result, err := e.attemptWebhook(ctx, fn, body, timeout)
		if err == nil {
			return result
		}
		lastErr = err
	}

	out := map[string]any{"error": lastErr.Error()}
	if fn.SpeakOnFailure != "" {
		out["_speak_on_failure"] = fn.SpeakOnFailure
	}
	return out
}

func buildWebhookBody(fn models.CustomFunction, args map[string]any, recentMessages []string, callID string) map[string]any {
	body := make(map[string]any, len(args)+1)
	for k, v := range args {
		body[k] = v
	}
	if fn.PayloadMode == models.PayloadFullContext {
		body["_call_context"] = map[string]any{
			"call_id":  callID,
			"messages": lastN(recentMessages, 6),
		}
	}
	return body
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (e *Executor) attemptWebhook(ctx context.Context, fn models.CustomFunction, body map[string]any, timeout time.Duration) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := string(fn.Method)
	if method == "" {
		method = "POST"
	}

	var req *http.Request
	var err error
	if method == "GET" {
		u, perr := url.Parse(fn.WebhookURL)
		if perr != nil {
			return nil, fmt.Errorf("invalid webhook url: %w", perr)
		}
		q := u.Query()
		for k, v := range body {
			q.Set(k, fmt.Sprintf("%v", v))
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	} else {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("encode webhook body: %w", merr)
		}
		req, err = http.NewRequestWithContext(reqCtx, method, fn.WebhookURL, bytes.NewReader(payload))
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range fn.Headers {
		req.Header.Set(k, fmt.Sprintf("%v", v))
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		truncated := string(respBody)
		if len(truncated) > maxWebhookErrorBody {
			truncated = truncated[:maxWebhookErrorBody]
		}
		return nil, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, truncated)
	}

	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		parsed = map[string]any{"response": string(respBody)}
	}

	if len(fn.ResponseMapping) == 0 {
		if m, ok := parsed.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{"response": parsed}, nil
	}

	mapped := map[string]any{"_raw": parsed}
	for outKey, path := range fn.ResponseMapping {
		pathStr, _ := path.(string)
		mapped[outKey] = evalDottedPath(parsed, pathStr)
	}
	return mapped, nil
}

// evalDottedPath evaluates a dotted/JSONPath-ish path ("$.data.order.status",
// "items.0.id") against a decoded JSON value. Missing keys or
// out-of-range indexes yield nil rather than an error.
func evalDottedPath(value any, path string) any {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return value
	}

	segments := strings.Split(path, ".")
	current := value
	for _, seg := range segments {
		if current == nil {
			return nil
		}
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil
			}
			current = arr[idx]
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[seg]
	}
	return current
}
