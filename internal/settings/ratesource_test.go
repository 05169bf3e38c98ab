package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPRateSource_Fetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantErr bool
	}{
		{
			name:   "rates map shape",
			status: http.StatusOK,
			body:   `{"base":"EUR","rates":{"RON":4.97}}`,
			want:   4.97,
		},
		{
			name:   "flat rate shape",
			status: http.StatusOK,
			body:   `{"rate":5.02}`,
			want:   5.02,
		},
		{
			name:    "upstream error",
			status:  http.StatusBadGateway,
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "no usable rate",
			status:  http.StatusOK,
			body:    `{"rates":{"USD":1.08}}`,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			source := NewHTTPRateSource(srv.URL, srv.Client())
			got, err := source.Fetch(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %v, want %v", got, tt.want)
			}
		})
	}
}
