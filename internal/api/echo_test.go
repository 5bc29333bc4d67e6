package api

import (
	"net/http"
	"testing"
	"time"
)

func TestServeConfigSetsReadHeaderTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ServeConfig
		want time.Duration
	}{
		{name: "set", cfg: ServeConfig{ReadHeaderTimeout: 5 * time.Second}, want: 5 * time.Second},
		{name: "zero keeps default", cfg: ServeConfig{}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := &http.Server{}
			tc.cfg.configure(srv)
			if srv.ReadHeaderTimeout != tc.want {
				t.Fatalf("ReadHeaderTimeout = %v, want %v", srv.ReadHeaderTimeout, tc.want)
			}
			if srv.ReadTimeout != 0 {
				t.Fatalf("ReadTimeout = %v, want unset", srv.ReadTimeout)
			}
		})
	}
}
