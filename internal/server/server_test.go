package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthline/synthline/internal/feature"
	"github.com/synthline/synthline/internal/llm"
)

func newTestServer(t *testing.T, mock *llm.MockProvider) *httptest.Server {
	t.Helper()

	gw := llm.NewGateway(llm.DefaultConfig(), nil)
	if mock != nil {
		gw.Register("mock", mock)
	}
	s := New(Config{OutputDir: t.TempDir()}, gw, nil, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func selection() feature.Selection {
	return feature.Selection{
		Label:               "Security",
		LabelDefinition:     "concerns protection of data",
		SpecificationFormat: feature.Values{"user story"},
		SpecificationLevel:  feature.Values{"system"},
		Stakeholder:         feature.Values{"an end user"},
		Domain:              feature.Values{"Banking"},
		Language:            feature.Values{"English"},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeatures(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/features")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var model map[string]feature.Descriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	assert.Contains(t, model, "artifact")
	assert.Contains(t, model["artifact"].Subfeatures, "specification_format")
}

func TestFetchModels(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o","object":"model"},{"id":"gpt-4o-mini","object":"model"}]}`))
	}))
	t.Cleanup(api.Close)

	cfg := llm.DefaultConfig()
	cfg.OpenAI.APIKey = "test-key"
	cfg.OpenAI.BaseURL = api.URL + "/v1"
	s := New(Config{OutputDir: t.TempDir()}, llm.NewGateway(cfg, nil), nil, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/models/fetch", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, body.Models)
}

func TestFetchModels_NoCredentials(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/models/fetch", struct{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewPrompt(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/generation/preview-prompt", PreviewRequest{
		Features:         selection(),
		SamplesPerPrompt: 3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Prompts []struct {
			Prompt string `json:"prompt"`
		} `json:"prompts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Prompts, 1)
	assert.Contains(t, body.Prompts[0].Prompt, "Banking")
	assert.Contains(t, body.Prompts[0].Prompt, "Generate 3 diverse requirements")
}

func TestPreviewPrompt_InvalidSelection(t *testing.T) {
	ts := newTestServer(t, nil)

	sel := selection()
	sel.Domain = nil
	resp := postJSON(t, ts.URL+"/api/generation/preview-prompt", PreviewRequest{
		Features:         sel,
		SamplesPerPrompt: 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGenerate_RejectsMissingModel(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/generation/generate", GenerateRequest{
		Features:   selection(),
		NumSamples: 2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_StreamsEventsOverWebsocket(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: `["first requirement", "second requirement"]`},
	)
	ts := newTestServer(t, mock)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/conn-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := postJSON(t, ts.URL+"/api/generation/generate", GenerateRequest{
		Features:         selection(),
		Model:            "mock",
		NumSamples:       2,
		SamplesPerPrompt: 2,
		OutputFormat:     "JSON",
		ConnectionID:     "conn-1",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev map[string]any
		require.NoError(t, conn.ReadJSON(&ev), "expected terminal event before deadline")

		switch ev["type"] {
		case "generation_complete":
			samples, ok := ev["samples"].([]any)
			require.True(t, ok)
			assert.Len(t, samples, 2)
			assert.Equal(t, false, ev["fewer_samples_received"])
			assert.Equal(t, "JSON", ev["output_format"])
			return
		case "error":
			t.Fatalf("job failed: %v", ev["message"])
		}
	}
}

func TestGenerate_ErrorEventOnProviderFailure(t *testing.T) {
	// Empty mock queue: every call fails as provider unavailable, and the
	// run ends with zero samples.
	mock := llm.NewMockProvider()
	ts := newTestServer(t, mock)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/conn-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := postJSON(t, ts.URL+"/api/generation/generate", GenerateRequest{
		Features:         selection(),
		Model:            "mock",
		NumSamples:       2,
		SamplesPerPrompt: 2,
		ConnectionID:     "conn-2",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev map[string]any
		require.NoError(t, conn.ReadJSON(&ev), "expected terminal event before deadline")

		if ev["type"] == "error" {
			assert.NotEmpty(t, ev["message"])
			return
		}
		require.NotEqual(t, "generation_complete", ev["type"], "job must not complete")
	}
}

func TestOptimize_SingleConfigCompletes(t *testing.T) {
	// Scripted run for one configuration with one iteration: baseline
	// scoring, actor, critic, rewrite, candidate scoring.
	mock := llm.NewMockProvider(
		llm.MockResponse{Text: `["alpha beta", "gamma delta"]`},         // baseline score
		llm.MockResponse{Text: `["alpha beta", "gamma delta"]`},         // actor
		llm.MockResponse{Text: "samples look repetitive"},               // critic
		llm.MockResponse{Text: `["rewritten prompt"]`},                  // rewrite
		llm.MockResponse{Text: `["epsilon zeta", "eta theta", "iota"]`}, // candidate score
	)
	ts := newTestServer(t, mock)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/conn-3"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := postJSON(t, ts.URL+"/api/optimization/optimize-prompt", OptimizeRequest{
		Features:         selection(),
		Model:            "mock",
		SamplesPerPrompt: 2,
		Iterations:       1,
		ConnectionID:     "conn-3",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev map[string]any
		require.NoError(t, conn.ReadJSON(&ev), "expected terminal event before deadline")

		switch ev["type"] {
		case "optimize_complete":
			assert.NotEmpty(t, ev["optimized_prompt"])
			return
		case "error":
			t.Fatalf("job failed: %v", ev["message"])
		}
	}
}
