package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Greeting string `json:"greeting"`
}

func TestPostDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["input"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"greeting": "hello"}`))
	}))
	defer server.Close()

	res, out, err := Post[echoPayload](context.Background(), server.Client(), server.URL,
		map[string]string{"Authorization": "Bearer token"},
		map[string]string{"input": "hi"},
	)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "hello", out.Greeting)
}

func TestPostReturnsResponseOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer server.Close()

	res, out, err := Post[echoPayload](context.Background(), server.Client(), server.URL, nil, map[string]string{})

	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "nope")
}

func TestPostDecodeErrorIncludesPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	_, _, err := Post[echoPayload](context.Background(), server.Client(), server.URL, nil, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not json at all")
}

func TestPostTruncatesLongErrorBodies(t *testing.T) {
	long := strings.Repeat("y", 2*maxErrorPreview)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, long, http.StatusBadRequest)
	}))
	defer server.Close()

	_, _, err := Post[echoPayload](context.Background(), server.Client(), server.URL, nil, map[string]string{})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), long)
	assert.Contains(t, err.Error(), "...")
}
