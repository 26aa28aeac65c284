package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Tool is a named, schema-validated function the session may invoke.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema advertised to the session layer.
	Parameters map[string]any
	// Handler validates args against the schema and returns a JSON
	// output string.
	Handler func(ctx context.Context, args string) (string, error)
}

// Registry holds the tools available to a session.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry from the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := r.tools[t.Name]; dup {
			continue
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke runs the named tool with raw JSON arguments.
func (r *Registry) Invoke(ctx context.Context, name, args string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("voice: unknown tool %q", name)
	}
	return t.Handler(ctx, args)
}

// APIToolsConfig configures the built-in tools that call back into the
// agent's HTTP data endpoints.
type APIToolsConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPITools builds the standard tool set: get_projects, get_skills,
// and get_pdf.
func NewAPITools(cfg APIToolsConfig) *Registry {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	return NewRegistry(
		Tool{
			Name:        "get_projects",
			Description: "Fetches portfolio projects (optionally featured only), ordered by 'order' ascending.",
			Parameters:  featuredOnlySchema(),
			Handler:     featuredOnlyHandler(client, base+"/api/projects", "projects"),
		},
		Tool{
			Name:        "get_skills",
			Description: "Fetches skills (optionally featured only), ordered by 'order' ascending.",
			Parameters:  featuredOnlySchema(),
			Handler:     featuredOnlyHandler(client, base+"/api/skills", "skills"),
		},
		Tool{
			Name:        "get_pdf",
			Description: "Searches the CV and profile documents and returns their paragraphs.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Free-text search query",
					},
				},
				"required": []string{"query"},
			},
			Handler: pdfHandler(client, base+"/api/search-pdf"),
		},
	)
}

func featuredOnlySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"featuredOnly": map[string]any{
				"type":        "boolean",
				"description": "If true, return only featured records",
			},
		},
	}
}

// featuredOnlyHandler builds a handler for the {featuredOnly?} shaped
// tools. The endpoint's collection field is extracted so the model gets
// the records directly.
func featuredOnlyHandler(client *http.Client, url, collection string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var params struct {
			FeaturedOnly *bool `json:"featuredOnly"`
		}
		if err := strictUnmarshal(args, &params); err != nil {
			return "", fmt.Errorf("voice: invalid %s arguments: %w", collection, err)
		}

		featured := params.FeaturedOnly != nil && *params.FeaturedOnly
		body, err := postTool(ctx, client, url, map[string]bool{"featuredOnly": featured})
		if err != nil {
			return "", err
		}

		var resp map[string]json.RawMessage
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("voice: decode %s response: %w", collection, err)
		}
		records, ok := resp[collection]
		if !ok {
			return "", fmt.Errorf("voice: response missing %q field", collection)
		}
		return string(records), nil
	}
}

func pdfHandler(client *http.Client, url string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var params struct {
			Query *string `json:"query"`
		}
		if err := strictUnmarshal(args, &params); err != nil {
			return "", fmt.Errorf("voice: invalid get_pdf arguments: %w", err)
		}
		if params.Query == nil {
			return "", fmt.Errorf("voice: get_pdf requires a query argument")
		}

		body, err := postTool(ctx, client, url, map[string]string{"query": *params.Query})
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
}

// strictUnmarshal rejects unknown fields, which is how the declared
// schemas are enforced. An empty argument string means no arguments.
func strictUnmarshal(args string, v any) error {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	dec := json.NewDecoder(strings.NewReader(args))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// postTool calls a data endpoint and returns its body, propagating a
// descriptive error on any non-success status.
func postTool(ctx context.Context, client *http.Client, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("voice: marshal tool request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("voice: build tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice: call tool endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("voice: read tool response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := extractMessage(body)
		return nil, fmt.Errorf("voice: tool endpoint %s returned %d: %s", url, resp.StatusCode, msg)
	}
	return body, nil
}

func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		return envelope.Message
	}
	return strings.TrimSpace(string(body))
}
