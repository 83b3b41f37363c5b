package watsonx_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/dispatch"
	"github.com/fwojciec/dispatch/watsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRequest(prompt string) dispatch.GenerationRequest {
	return dispatch.GenerationRequest{
		Prompt:     prompt,
		Decoding:   dispatch.DefaultDecoding(),
		Moderation: dispatch.DefaultModeration(),
	}
}

func generationServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ml/v1/text/generation", r.URL.Path)
		assert.Equal(t, "2023-05-29", r.URL.Query().Get("version"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = w.Write([]byte(`{"results":[{"generated_text":"ok"}]}`))
	}))
	defer srv.Close()

	client := watsonx.New("proj-1", watsonx.WithBaseURL(srv.URL+"/"))
	_, err := client.Generate(context.Background(), "tok-123", defaultRequest("User: hi\nAssistant:"))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "User: hi\nAssistant:", body["input"])
	assert.Equal(t, "ibm/granite-3-8b-instruct", body["model_id"])
	assert.Equal(t, "proj-1", body["project_id"])

	params := body["parameters"].(map[string]any)
	assert.Equal(t, "greedy", params["decoding_method"])
	assert.Equal(t, float64(200), params["max_new_tokens"])
	assert.Equal(t, float64(0), params["min_new_tokens"])
	assert.Equal(t, float64(1), params["repetition_penalty"])
	assert.Equal(t, []any{"[END]"}, params["stop_sequences"])

	mods := body["moderations"].(map[string]any)
	for _, detector := range []string{"hap", "pii"} {
		d := mods[detector].(map[string]any)
		for _, side := range []string{"input", "output"} {
			s := d[side].(map[string]any)
			assert.Equal(t, true, s["enabled"], "%s.%s", detector, side)
			assert.Equal(t, 0.5, s["threshold"], "%s.%s", detector, side)
			mask := s["mask"].(map[string]any)
			assert.Equal(t, true, mask["remove_entity_value"], "%s.%s", detector, side)
		}
	}
}

func TestClient_WithModel(t *testing.T) {
	t.Parallel()

	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ModelID string `json:"model_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.ModelID
		_, _ = w.Write([]byte(`{"results":[{"generated_text":"ok"}]}`))
	}))
	defer srv.Close()

	client := watsonx.New("p", watsonx.WithBaseURL(srv.URL), watsonx.WithModel("ibm/granite-13b-chat-v2"))
	_, err := client.Generate(context.Background(), "t", defaultRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ibm/granite-13b-chat-v2", model)
}

func TestClient_OmitsDisabledModeration(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"results":[{"generated_text":"ok"}]}`))
	}))
	defer srv.Close()

	req := defaultRequest("hi")
	req.Moderation = dispatch.ModerationConfig{}
	client := watsonx.New("p", watsonx.WithBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), "t", req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.NotContains(t, body, "moderations")
}

func TestClient_Success(t *testing.T) {
	t.Parallel()

	srv := generationServer(t, http.StatusOK, `{
		"model_id": "ibm/granite-3-8b-instruct",
		"results": [{
			"generated_text": "Your package will arrive in 2 days.[END]",
			"generated_token_count": 12,
			"input_token_count": 30,
			"stop_reason": "stop_sequence"
		}]
	}`)
	client := watsonx.New("p", watsonx.WithBaseURL(srv.URL))

	res, err := client.Generate(context.Background(), "t", defaultRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Your package will arrive in 2 days.[END]", res.Text)
	assert.Equal(t, 12, res.GeneratedTokens)
	assert.Equal(t, 30, res.InputTokens)
	assert.Equal(t, "stop_sequence", res.StopReason)
}

func TestClient_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing results", `{"model_id":"ibm/granite-3-8b-instruct"}`},
		{"empty results", `{"results":[]}`},
		{"missing generated_text", `{"results":[{"stop_reason":"max_tokens"}]}`},
		{"malformed json", `{"results":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := generationServer(t, http.StatusOK, tt.body)
			client := watsonx.New("p", watsonx.WithBaseURL(srv.URL))

			_, err := client.Generate(context.Background(), "t", defaultRequest("hi"))
			require.Error(t, err)
			assert.ErrorIs(t, err, dispatch.ErrParse)
			assert.Equal(t, "parse_error", dispatch.KindOf(err))

			var de *dispatch.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.body, de.Body)
		})
	}
}

func TestClient_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"errors":[{"code":"invalid_input_argument","message":"Missing project_id"}],"trace":"abc","status_code":400}`,
			message: "invalid_input_argument: Missing project_id",
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"errors":[{"code":"authentication_token_expired","message":"Token expired"}]}`,
			message: "authentication_token_expired: Token expired",
		},
		{
			name:    "service unavailable plain body",
			status:  http.StatusServiceUnavailable,
			body:    `upstream connect error`,
			message: "Service Unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := generationServer(t, tt.status, tt.body)
			client := watsonx.New("p", watsonx.WithBaseURL(srv.URL))

			_, err := client.Generate(context.Background(), "t", defaultRequest("hi"))
			require.Error(t, err)
			assert.ErrorIs(t, err, dispatch.ErrUpstream)
			assert.Contains(t, err.Error(), tt.message)

			var de *dispatch.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.body, de.Body)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := watsonx.New("p", watsonx.WithBaseURL(url))
	_, err := client.Generate(context.Background(), "t", defaultRequest("hi"))
	assert.ErrorIs(t, err, dispatch.ErrUpstream)
}

func TestClient_RejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	client := watsonx.New("p", watsonx.WithBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), "t", defaultRequest(""))
	assert.ErrorIs(t, err, dispatch.ErrValidation)
	assert.Equal(t, "validation_error", dispatch.KindOf(err))
}
