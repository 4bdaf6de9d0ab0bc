package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer server.Close()

	fetcher := NewContentFetcher(5*time.Second, nil)
	body, err := fetcher.Fetch(context.Background(), server.URL, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
}

func TestFetchSendsCredential(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	fetcher := NewContentFetcher(5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, "api-key-123")
	require.NoError(t, err)
	assert.Equal(t, "api-key-123", gotAuth)
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewContentFetcher(5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, server.URL, notFound.URL)
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewContentFetcher(5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, "")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Cause, "502")
}

func TestFetchConnectionRefused(t *testing.T) {
	fetcher := NewContentFetcher(time.Second, nil)
	_, err := fetcher.Fetch(context.Background(), "http://127.0.0.1:1", "")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}
