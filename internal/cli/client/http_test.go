package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_AskSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions/s-1/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"question":"why?"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"answer":"because","passages":[{"index":1,"text":"x","score":0.5}]}}`))
	}))
	defer srv.Close()

	answer, err := NewAPIClientWithConfig(srv.URL+"/").Ask(context.Background(), "s-1", "why?")
	require.NoError(t, err)
	assert.Equal(t, "because", answer.Answer)
	require.Len(t, answer.Passages, 1)
	assert.Equal(t, 1, answer.Passages[0].Index)
}

func TestAPIClient_EscapesSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/a%2Fb/history", r.URL.EscapedPath())
		w.Write([]byte(`{"data":{"turns":[{"role":"user","content":"hi"}]}}`))
	}))
	defer srv.Close()

	turns, err := NewAPIClientWithConfig(srv.URL).History(context.Background(), "a/b")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].Content)
}

func TestAPIClient_ErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"session is not ready","code":"NOT_READY"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).GetSession(context.Background(), "s-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "NOT_READY", apiErr.Code)
	assert.Equal(t, "API error (409 NOT_READY): session is not ready", apiErr.Error())
	assert.True(t, HasCode(err, codeNotReady))
	assert.False(t, HasCode(err, codeNotFound))
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down\n"))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).CreateSession(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestAPIClient_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewAPIClientWithConfig(srv.URL).DeleteSession(context.Background(), "s-1"))
}

func TestAPIClient_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewAPIClientWithConfig(srv.URL).Ingest(ctx, "s-1", "file:///tmp/t.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewAPIClientWithCmd_URLCascade(t *testing.T) {
	useTempConfig(t)
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://config:8080"}))
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://config:8080", api.baseURL)

	t.Setenv(envAPIURL, "http://env:8080")
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", api.baseURL)

	cmd := &cobra.Command{}
	cmd.Flags().String("api-url", "", "")
	require.NoError(t, cmd.Flags().Set("api-url", "http://flag:8080/"))
	api, err = NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8080", api.baseURL)

	t.Setenv(envAPIURL, "not a url")
	_, err = NewAPIClientWithCmd(nil)
	assert.ErrorContains(t, err, "invalid API URL")
}
