package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"browser_agent/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	calls int
}

func (p *stubParser) ParseIntent(_ context.Context, text string) (entities.Intent, error) {
	p.calls++
	return entities.Intent{Kind: entities.IntentNavigation, URL: text}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// completionServer answers every chat completion with content
func completionServer(t *testing.T, status int, content string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestOpenAIClient_ParsesCompletion(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK,
		"```json\n{\"intent\": \"local_discovery\", \"category\": \"pizza\", \"location\": \"Indiranagar\", \"filters\": {\"rating_min\": 4, \"count\": 3}}\n```")
	fallback := &stubParser{}
	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/api/v1/chat/completions", Model: "test-model"}, fallback, quietLogger())
	require.NoError(t, err)

	in, err := c.ParseIntent(context.Background(), "Top 3 pizza places near Indiranagar with 4+ rating")
	require.NoError(t, err)

	assert.Equal(t, entities.IntentLocalDiscovery, in.Kind)
	assert.Equal(t, "pizza", in.Category)
	assert.Equal(t, "Indiranagar", in.Location)
	require.NotNil(t, in.Filters.MinRating)
	assert.Equal(t, 4.0, *in.Filters.MinRating)
	assert.Equal(t, 3, in.Filters.Count)
	assert.Zero(t, fallback.calls)

	assert.Equal(t, "test-model", (*req)["model"])
	assert.EqualValues(t, 300, (*req)["max_tokens"])
}

func TestOpenAIClient_FallsBackOnServerError(t *testing.T) {
	srv, _ := completionServer(t, http.StatusInternalServerError, "")
	fallback := &stubParser{}
	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/api/v1"}, fallback, quietLogger())
	require.NoError(t, err)

	in, err := c.ParseIntent(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, entities.IntentNavigation, in.Kind)
}

func TestOpenAIClient_FallsBackOnBadJSON(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, "Sure! Here is the intent you asked for.")
	fallback := &stubParser{}
	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/api/v1/"}, fallback, quietLogger())
	require.NoError(t, err)

	_, err = c.ParseIntent(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{}, &stubParser{}, quietLogger())
	assert.Error(t, err)
}

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, in entities.Intent)
	}{
		{
			name:    "price as float",
			content: `{"intent":"product_search","product_name":"MacBook Air","filters":{"max_price":100000.0}}`,
			check: func(t *testing.T, in entities.Intent) {
				require.NotNil(t, in.Filters.MaxPrice)
				assert.Equal(t, int64(100000), *in.Filters.MaxPrice)
				assert.Nil(t, in.Filters.MinPrice)
			},
		},
		{
			name:    "null filters",
			content: `{"intent":"navigation","url":"https://example.com","filters":{"max_price":null,"count":null}}`,
			check: func(t *testing.T, in entities.Intent) {
				assert.Equal(t, entities.IntentNavigation, in.Kind)
				assert.Nil(t, in.Filters.MaxPrice)
				assert.Zero(t, in.Filters.Count)
			},
		},
		{
			name:    "generate marker",
			content: "```\n{\"intent\":\"form_fill\",\"form_data\":{\"email\":\"generate_temp\",\"name\":\"Asha\"}}\n```",
			check: func(t *testing.T, in entities.Intent) {
				assert.Equal(t, map[string]string{"email": "", "name": "Asha"}, in.FormData)
			},
		},
		{
			name:    "unknown kind",
			content: `{"intent":"book_flight","site":" Amazon "}`,
			check: func(t *testing.T, in entities.Intent) {
				assert.Equal(t, entities.IntentUnknown, in.Kind)
				assert.Equal(t, "amazon", in.Site)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := decodeIntent(tt.content)
			require.NoError(t, err)
			tt.check(t, in)
		})
	}

	_, err := decodeIntent("not json")
	assert.Error(t, err)
}
