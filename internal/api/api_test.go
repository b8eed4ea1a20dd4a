package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ip4live/checkipdns/internal/querylog"
)

func performRequest(engine http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func newTestServer(t *testing.T, qlog *querylog.Log) *Server {
	t.Helper()
	return New(Options{
		Host: "127.0.0.1",
		Port: 8080,
		Zone: "my.ip4.live.",
		Stats: func() DNSStats {
			return DNSStats{QueriesTotal: 10, Answered: 7, Refused: 2, Dropped: 1}
		},
		QueryLog: qlog,
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	w := performRequest(s.Engine(), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "my.ip4.live.", body["zone"])
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)

	w := performRequest(s.Engine(), http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		DNS    DNSStats       `json:"dns"`
		System map[string]any `json:"system"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(10), body.DNS.QueriesTotal)
	assert.Equal(t, uint64(7), body.DNS.Answered)
	assert.Contains(t, body.System, "goroutines")
}

func TestQueriesDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	w := performRequest(s.Engine(), http.MethodGet, "/api/v1/queries")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueries(t *testing.T) {
	qlog, err := querylog.Open(filepath.Join(t.TempDir(), "queries.db"), nil)
	require.NoError(t, err)
	defer qlog.Close()

	qlog.Record(querylog.Entry{
		Time:     time.Now(),
		ClientIP: "203.0.113.7",
		QName:    "my.ip4.live.",
		QType:    1,
		Variant:  "answer",
		Answered: true,
	})
	require.Eventually(t, func() bool {
		n, err := qlog.Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	s := newTestServer(t, qlog)
	w := performRequest(s.Engine(), http.MethodGet, "/api/v1/queries?limit=10")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Queries []struct {
			Client  string `json:"client"`
			QName   string `json:"qname"`
			Variant string `json:"variant"`
		} `json:"queries"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "203.0.113.7", body.Queries[0].Client)
	assert.Equal(t, "my.ip4.live.", body.Queries[0].QName)
	assert.Equal(t, "answer", body.Queries[0].Variant)
}

func TestQueriesBadLimit(t *testing.T) {
	qlog, err := querylog.Open(filepath.Join(t.TempDir(), "queries.db"), nil)
	require.NoError(t, err)
	defer qlog.Close()

	s := newTestServer(t, qlog)
	for _, path := range []string{"/api/v1/queries?limit=0", "/api/v1/queries?limit=abc", "/api/v1/queries?limit=9999"} {
		w := performRequest(s.Engine(), http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}
