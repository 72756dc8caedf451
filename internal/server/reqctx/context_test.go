package reqctx

import (
	"net/http/httptest"
	"testing"

	"github.com/maruel/ksid"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"ipv4", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"no port", "192.0.2.1", nil, "192.0.2.1"},
		{"forwarded chain", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "203.0.113.5"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := t.Context()
	if ClientIP(ctx) != "" || RequestID(ctx) != 0 {
		t.Fatal("empty context must return zero values")
	}
	id := ksid.NewID()
	ctx = WithRequestID(WithClientIP(ctx, "192.0.2.1"), id)
	if got := ClientIP(ctx); got != "192.0.2.1" {
		t.Errorf("ClientIP() = %q", got)
	}
	if got := RequestID(ctx); got != id {
		t.Errorf("RequestID() = %v, want %v", got, id)
	}
}
