package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakefence/internal/domain"
)

var testSchema = domain.ViewSchema{
	Table: "sales",
	Columns: []domain.ViewColumn{
		{Name: "region", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
	},
}

func TestHTTPGeneratorRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "total sales by region", req.Prompt)
		assert.Equal(t, "sales", req.Schema.Table)

		json.NewEncoder(w).Encode(generateResponse{ //nolint:errcheck
			SQL: "SELECT region, SUM(amount) FROM sales GROUP BY region",
		})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, "secret", 5*time.Second)
	sql, err := g.GenerateSQL(context.Background(), "total sales by region", testSchema)
	require.NoError(t, err)
	assert.Contains(t, sql, "GROUP BY region")
}

func TestHTTPGeneratorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr: "status 502",
		},
		{
			name: "error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(generateResponse{Error: "prompt too vague"}) //nolint:errcheck
			},
			wantErr: "prompt too vague",
		},
		{
			name: "empty sql",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(generateResponse{}) //nolint:errcheck
			},
			wantErr: "no SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewHTTPGenerator(srv.URL, "", 5*time.Second)
			_, err := g.GenerateSQL(context.Background(), "anything", testSchema)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
