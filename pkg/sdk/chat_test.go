package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sseHandler(t *testing.T, frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
	}
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Ask should request stream=false")
		}
		json.NewEncoder(w).Encode(ChatResult{Answer: "שלום", Sources: []string{"cv.pdf"}})
	}))
	defer srv.Close()

	result, err := New(srv.URL).Ask(context.Background(), "מה שלומך?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Answer != "שלום" || len(result.Sources) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestAsk_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"code": "invalid_prompt", "message": "invalid prompt"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Ask(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "invalid_prompt" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestStream_DeliversFramesInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{"type":"sources","sources":["cv.pdf"]}`,
		`{"type":"chunk","content":"שלום"}`,
		`{"type":"chunk","content":" עולם"}`,
		`{"type":"done"}`,
	))
	defer srv.Close()

	session := New(srv.URL).NewChatSession()

	var events []string
	err := session.Stream(context.Background(), "שאלה", StreamHandler{
		OnSources: func(sources []string) {
			events = append(events, "sources:"+strings.Join(sources, ","))
		},
		OnChunk: func(content string) {
			events = append(events, "chunk:"+content)
		},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	want := []string{"sources:cv.pdf", "chunk:שלום", "chunk: עולם"}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestStream_ErrorFrameBecomesError(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		`{"type":"sources","sources":[]}`,
		`{"type":"error","error":"Stream failed"}`,
	))
	defer srv.Close()

	session := New(srv.URL).NewChatSession()
	err := session.Stream(context.Background(), "שאלה", StreamHandler{})
	if err == nil || !strings.Contains(err.Error(), "Stream failed") {
		t.Errorf("got %v, want stream failure", err)
	}
}

func TestStream_NewStreamSupersedesPrevious(t *testing.T) {
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"sources\",\"sources\":[]}\n\n")
		flusher.Flush()
		if requests.Add(1) == 1 {
			// First request: hang until the test finishes.
			close(firstStarted)
			<-release
			return
		}
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()
	defer close(release)

	session := New(srv.URL).NewChatSession()

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- session.Stream(context.Background(), "first", StreamHandler{})
	}()

	<-firstStarted
	if err := session.Stream(context.Background(), "second", StreamHandler{}); err != nil {
		t.Fatalf("second Stream: %v", err)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first stream got %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first stream did not terminate after being superseded")
	}
}

func TestStream_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"sources\",\"sources\":[]}\n\n")
		flusher.Flush()
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	session := New(srv.URL).NewChatSession()

	done := make(chan error, 1)
	go func() {
		done <- session.Stream(ctx, "שאלה", StreamHandler{})
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate after cancellation")
	}
}
