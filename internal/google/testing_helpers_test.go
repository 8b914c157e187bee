package google

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/room-booker/internal/application"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testTokens() application.TokenBundle {
	return application.TokenBundle{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		Expiry:       baseTime.Add(time.Hour),
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) Options {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return Options{HTTPClient: server.Client(), Endpoint: server.URL + "/"}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func googleError(code int, reason string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": "upstream failure",
			"errors": []map[string]any{
				{"reason": reason, "message": "upstream failure"},
			},
		},
	}
}
