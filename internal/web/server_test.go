package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockAnalyzer/internal/analysis"
	"github.com/dyike/StockAnalyzer/internal/form"
)

type stubAnalyzer struct {
	calls []analysis.Request
	text  string
	err   error
}

func (s *stubAnalyzer) Analyze(_ context.Context, req analysis.Request) (string, error) {
	s.calls = append(s.calls, req)
	return s.text, s.err
}

func newTestServer(t *testing.T, a form.Analyzer) *Server {
	t.Helper()
	srv, err := NewServer(Options{Addr: "127.0.0.1:0", Analyzer: a})
	require.NoError(t, err)
	return srv
}

func postAnalyze(t *testing.T, srv *Server, body string) (*httptest.ResponseRecorder, analyzeResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestGetFormRendersIdlePage(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, form.SubmitLabel)
	assert.Contains(t, body, form.ResultTitle)
	assert.Contains(t, body, `id="error" role="alert" hidden`)
	assert.Contains(t, body, `id="result" hidden`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestFormSubmitsWithoutReloading(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()

	// A native form post would reload the page and clear the password input.
	assert.Contains(t, body, `<form id="analyze-form" data-endpoint="/analyze">`)
	assert.NotContains(t, body, `method="post"`)
	assert.Contains(t, body, "event.preventDefault()")
	assert.Contains(t, body, `document.getElementById("apiKey").value`)
}

func TestResubmitWithSameCredentialAndEditedStock(t *testing.T) {
	stub := &stubAnalyzer{text: "ok"}
	srv := newTestServer(t, stub)

	rec, _ := postAnalyze(t, srv, `{"apiKey":"sk-test","stock":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := postAnalyze(t, srv, `{"apiKey":"sk-test","stock":"MSFT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Analysis)

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "sk-test", stub.calls[1].APIKey.Reveal())
	assert.Equal(t, "MSFT", stub.calls[1].Stock)
}

func TestAnalyzeReturnsTextVerbatim(t *testing.T) {
	text := "**Buy** <script>alert(1)</script>\n  line two"
	stub := &stubAnalyzer{text: text}
	srv := newTestServer(t, stub)

	rec, resp := postAnalyze(t, srv, `{"apiKey":"sk-super-secret","stock":"AAPL"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, text, *resp.Analysis)
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, form.SubmitLabel, resp.SubmitLabel)
	assert.Empty(t, resp.Error)
	assert.NotContains(t, rec.Body.String(), "sk-super-secret")

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "sk-super-secret", stub.calls[0].APIKey.Reveal())
	assert.Equal(t, "AAPL", stub.calls[0].Stock)
}

func TestAnalyzeReportsServiceError(t *testing.T) {
	stub := &stubAnalyzer{err: &analysis.ServiceError{StatusCode: 401, Message: "Invalid API key"}}
	srv := newTestServer(t, stub)

	rec, resp := postAnalyze(t, srv, `{"apiKey":"sk-test","stock":"AAPL"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "Invalid API key", resp.Error)
	assert.Nil(t, resp.Analysis)
}

func TestAnalyzeTransportFailureFallsBack(t *testing.T) {
	stub := &stubAnalyzer{err: &analysis.TransportError{Err: errors.New("")}}
	srv := newTestServer(t, stub)

	_, resp := postAnalyze(t, srv, `{"apiKey":"sk-test","stock":"AAPL"}`)

	assert.Equal(t, analysis.FallbackMessage, resp.Error)
}

func TestAnalyzeMissingInput(t *testing.T) {
	stub := &stubAnalyzer{text: "unused"}
	srv := newTestServer(t, stub)

	rec, resp := postAnalyze(t, srv, `{"stock":"AAPL"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, missingInputMessage, resp.Error)
	assert.Empty(t, stub.calls, "no request may be dispatched")
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	stub := &stubAnalyzer{text: "unused"}
	srv := newTestServer(t, stub)

	rec, resp := postAnalyze(t, srv, `apiKey=sk-test&stock=AAPL`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, stub.calls)
}

func TestSetAnalyzerSwapsCollaborator(t *testing.T) {
	first := &stubAnalyzer{text: "first"}
	second := &stubAnalyzer{text: "second"}
	srv := newTestServer(t, first)

	srv.SetAnalyzer(second, 0)
	_, resp := postAnalyze(t, srv, `{"apiKey":"sk-test","stock":"AAPL"}`)

	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "second", *resp.Analysis)
	assert.Empty(t, first.calls)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
