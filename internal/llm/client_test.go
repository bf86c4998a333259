package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/tsunagu/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(config.LLMConfig{
		Provider:    "ollama",
		Model:       "llama3.2",
		BaseURL:     srv.URL,
		Temperature: 0.7,
		MaxTokens:   4096,
	})
}

func TestInvoke(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ollama" {
			t.Errorf("auth = %q", got)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Stream {
			t.Error("blocking request must not set stream")
		}
		if req.Model != "llama3.2" {
			t.Errorf("model = %s", req.Model)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}]}`)
	})

	got, err := client.Invoke(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello there" {
		t.Errorf("Invoke = %q", got)
	}
}

func TestInvokeBackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})
	_, err := client.Invoke(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("err = %v", err)
	}
}

func TestInvokeUnreachable(t *testing.T) {
	client := NewHTTPClient(config.LLMConfig{
		Model:   "llama3.2",
		BaseURL: "http://127.0.0.1:1",
	})
	if _, err := client.Invoke(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if !req.Stream {
			t.Error("stream request must set stream")
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n\n")
	})

	var got strings.Builder
	err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "Hello" {
		t.Errorf("stream = %q, want Hello", got.String())
	}
}

func TestStreamCallbackStops(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	wantErr := fmt.Errorf("stop")
	err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		deltas = append(deltas, delta)
		return wantErr
	})
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if len(deltas) != 1 {
		t.Errorf("deltas = %v", deltas)
	}
}
