package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type ipEcho struct{}

func (ipEcho) RegisterRoutes(e *echo.Echo) {
	e.GET("/ip", func(c echo.Context) error { return c.String(http.StatusOK, c.RealIP()) })
}

func TestRealIPIgnoresForwardedForByDefault(t *testing.T) {
	tests := []struct {
		name  string
		trust bool
		want  string
	}{
		{name: "direct", trust: false, want: "203.0.113.7"},
		{name: "behind proxy", trust: true, want: "198.51.100.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(ipEcho{}, WithMetrics(""), WithCORS(false), WithTrustProxy(tt.trust))

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = "10.0.0.2:51000"
			if !tt.trust {
				req.RemoteAddr = "203.0.113.7:51000"
			}
			req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.9")
			rec := httptest.NewRecorder()
			s.Echo().ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
