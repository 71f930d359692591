package mockprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// StartMockProvider launches a lightweight OpenAI-compatible mock server that
// answers every chat completion with the given assistant content. Judge and
// provider tests point NewOpenAI at the returned base URL so no network or
// API key is involved. It returns a shutdown function and the base URL.
func StartMockProvider(addr, assistantContent string, delay time.Duration) (func(context.Context) error, string, error) {
	if strings.TrimSpace(addr) == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimSuffix(r.URL.Path, "/")

		if r.Method == http.MethodPost && (p == "/v1/chat/completions" || p == "/chat/completions") {
			if delay > 0 {
				time.Sleep(delay)
			}
			writeChatCompletion(w, assistantContent)
			return
		}

		http.NotFound(w, r)
	})

	srv := &http.Server{Handler: mux}
	go func() {
		_ = srv.Serve(ln)
	}()

	baseURL := "http://" + ln.Addr().String()
	return srv.Shutdown, baseURL, nil
}

func writeChatCompletion(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":     "chatcmpl-mock-1",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 4,
			"total_tokens":      16,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
