package middleware_test

import (
	"testing"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/middleware"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"plain", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer abc", "abc", true},
		{"quoted", `Bearer "abc"`, "abc", true},
		{"trailing garbage", "Bearer abc extra", "abc", true},
		{"no scheme", "abc", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"empty token", "Bearer ", "", false},
		{"empty header", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := middleware.ExtractBearerToken(tt.header)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
