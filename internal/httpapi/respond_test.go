package httpapi

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestRespondJSON_EncodeFailureUsesLogger(t *testing.T) {
	var buf bytes.Buffer
	api := New(nil, nil, slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	api.respondJSON(rec, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	check.Equal(t, http.StatusOK, rec.Code)
	out := buf.String()
	check.True(t, strings.Contains(out, `"msg":"failed to encode JSON response"`))
	check.True(t, strings.Contains(out, `"path":"/api/teams"`))
}
