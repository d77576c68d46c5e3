package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/httpclient/mocks"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

const testRegistryEndpoint = "https://registry.example/resource/m9d7-ebf2.json"

func TestRDWRegistry_Fetch_Responses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		expectKind  FailureKind
		expectFacts record.Facts
	}{
		{
			name: "single vehicle",
			body: `[{"kenteken":"G727FN","merk":"TOYOTA","aantal_deuren":"4","lengte":450,"unknown_field":"x"}]`,
			expectFacts: record.Facts{
				"kenteken":      record.Text("G727FN"),
				"merk":          record.Text("TOYOTA"),
				"aantal_deuren": record.Text("4"),
				"lengte":        record.Number(450),
			},
		},
		{
			name:        "first element wins",
			body:        `[{"merk":"TOYOTA"},{"merk":"HONDA"}]`,
			expectFacts: record.Facts{"merk": record.Text("TOYOTA")},
		},
		{name: "empty array", body: `[]`, expectKind: NoDataFound},
		{name: "json null", body: `null`, expectKind: NoDataFound},
		{name: "invalid json", body: `[{"merk":`, expectKind: ProtocolError},
		{name: "object instead of array", body: `{"merk":"TOYOTA"}`, expectKind: ProtocolError},
		{name: "array of strings", body: `["TOYOTA"]`, expectKind: ProtocolError},
		{name: "empty body", body: ``, expectKind: ProtocolError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			client.EXPECT().
				Get(gomock.Any(), testRegistryEndpoint+"?kenteken=G727FN", httpclient.AcceptJSON).
				Return([]byte(tt.body), nil)

			reg := NewRDWRegistry(client, WithRegistryEndpoint(testRegistryEndpoint))
			facts, err := reg.Fetch(context.Background(), plate.MustParse("G727FN"))

			if tt.expectKind != 0 {
				require.Error(t, err)
				assert.Nil(t, facts)
				assert.Equal(t, tt.expectKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectFacts, facts)
		})
	}
}

func TestRDWRegistry_Fetch_TransportErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		expectKind FailureKind
	}{
		{name: "http status", err: httpclient.NewHTTPError(http.StatusBadGateway, testRegistryEndpoint, "502 Bad Gateway"), expectKind: ConnectionFailure},
		{name: "deadline", err: fmt.Errorf("failed to execute request: %w", context.DeadlineExceeded), expectKind: Timeout},
		{name: "canceled", err: fmt.Errorf("failed to execute request: %w", context.Canceled), expectKind: ConnectionFailure},
		{name: "too large", err: fmt.Errorf("%w: exceeds limit", httpclient.ErrResponseTooLarge), expectKind: ProtocolError},
		{name: "unexpected", err: errors.New("something odd"), expectKind: ProtocolError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			client.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)

			_, err := NewRDWRegistry(client).Fetch(context.Background(), plate.MustParse("G727FN"))
			require.Error(t, err)
			assert.Equal(t, tt.expectKind, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRDWRegistry_Fetch_HTTPServer(t *testing.T) {
	t.Parallel()

	t.Run("query and success", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "AB12CD", r.URL.Query().Get(RegistryPlateParam))
			assert.Equal(t, httpclient.AcceptJSON, r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"merk":"VOLVO","vervaldatum_apk_dt":"2026-01-15T00:00:00.000"}]`))
		}))
		defer server.Close()

		reg := NewRDWRegistry(httpclient.NewDefaultClient(0), WithRegistryEndpoint(server.URL))
		facts, err := reg.Fetch(context.Background(), plate.MustParse("ab-12-cd"))
		require.NoError(t, err)
		assert.Equal(t, record.Text("VOLVO"), facts["merk"])
		assert.Equal(t, record.KindDate, facts["vervaldatum_apk_dt"].Kind)
	})

	t.Run("server error is a connection failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		reg := NewRDWRegistry(httpclient.NewDefaultClient(0), WithRegistryEndpoint(server.URL))
		_, err := reg.Fetch(context.Background(), plate.MustParse("AB12CD"))
		assert.ErrorIs(t, err, ErrConnection)
		assert.Equal(t, http.StatusServiceUnavailable, httpclient.StatusCode(err))
	})

	t.Run("slow server times out", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		reg := NewRDWRegistry(httpclient.NewDefaultClient(0),
			WithRegistryEndpoint(server.URL),
			WithRegistryTimeout(50*time.Millisecond),
		)
		_, err := reg.Fetch(context.Background(), plate.MustParse("AB12CD"))
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("closed server is a connection failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		endpoint := server.URL
		server.Close()

		reg := NewRDWRegistry(httpclient.NewDefaultClient(0), WithRegistryEndpoint(endpoint))
		_, err := reg.Fetch(context.Background(), plate.MustParse("AB12CD"))
		assert.ErrorIs(t, err, ErrConnection)
	})
}

func TestRDWRegistry_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := NewRDWRegistry(mocks.NewMockClient(ctrl), WithRegistryEndpoint("://bad"))
	_, err := reg.Fetch(context.Background(), plate.MustParse("AB12CD"))
	assert.ErrorIs(t, err, ErrProtocol)
}
