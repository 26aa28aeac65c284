package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newToolsServer(t *testing.T, handler http.HandlerFunc) (*Registry, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tools := NewAPITools(APIToolsConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	return tools, srv
}

func TestGetProjectsForwardsFeaturedOnly(t *testing.T) {
	var gotPath string
	var gotBody map[string]bool
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"projects":[{"id":"p1","title":"CRM"}]}`))
	})

	out, err := tools.Invoke(context.Background(), "get_projects", `{"featuredOnly":true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/projects" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !gotBody["featuredOnly"] {
		t.Fatal("expected featuredOnly=true to be forwarded")
	}
	if out != `[{"id":"p1","title":"CRM"}]` {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGetSkillsDefaultsFeaturedOnlyFalse(t *testing.T) {
	var gotBody map[string]bool
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"skills":[]}`))
	})

	if _, err := tools.Invoke(context.Background(), "get_skills", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["featuredOnly"] {
		t.Fatal("expected featuredOnly to default to false")
	}
}

func TestToolRejectsUnknownArguments(t *testing.T) {
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("endpoint must not be called for invalid arguments")
	})

	_, err := tools.Invoke(context.Background(), "get_projects", `{"featured":true}`)
	if err == nil {
		t.Fatal("expected an error for an unknown argument field")
	}
}

func TestGetPDFRequiresQuery(t *testing.T) {
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("endpoint must not be called without a query")
	})

	if _, err := tools.Invoke(context.Background(), "get_pdf", `{}`); err == nil {
		t.Fatal("expected an error for a missing query")
	}
}

func TestGetPDFReturnsCorpus(t *testing.T) {
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search-pdf" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":["פסקה ראשונה"]}]}`))
	})

	out, err := tools.Invoke(context.Background(), "get_pdf", `{"query":"ניסיון"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "פסקה ראשונה") {
		t.Fatalf("expected corpus content, got %q", out)
	}
}

func TestToolPropagatesEndpointFailure(t *testing.T) {
	tools, _ := newToolsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"skills":[],"code":"records_unavailable","message":"Failed to fetch records"}`))
	})

	_, err := tools.Invoke(context.Background(), "get_skills", `{}`)
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "Failed to fetch records") {
		t.Fatalf("expected a descriptive error, got %v", err)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	tools := NewRegistry()
	if _, err := tools.Invoke(context.Background(), "get_weather", "{}"); err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
}
