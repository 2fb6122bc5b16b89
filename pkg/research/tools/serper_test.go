package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-123", r.Header.Get("X-API-KEY"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "used Toyota Corolla for sale", body["q"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"searchParameters": {"q": "used Toyota Corolla for sale"},
			"organic": [
				{"title": "2018 Corolla", "snippet": "Low miles", "link": "https://cars.example/1", "position": 1},
				{"title": "2019 Corolla", "link": "https://cars.example/2"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewSerperClient(srv.URL, "key-123", time.Second)
	results, err := c.Search(context.Background(), "used Toyota Corolla for sale")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "2018 Corolla", Snippet: "Low miles", Link: "https://cars.example/1"}, results[0])
	assert.Empty(t, results[1].Snippet)
}

func TestSerperClientNoOrganic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchParameters": {}}`))
	}))
	defer srv.Close()

	results, err := NewSerperClient(srv.URL, "k", time.Second).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSerperClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusForbidden)
			},
			want: "403",
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			want: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewSerperClient(srv.URL, "k", time.Second).Search(context.Background(), "q")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSerperClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewSerperClient(url, "k", time.Second).Search(context.Background(), "q")
	assert.Error(t, err)
}
