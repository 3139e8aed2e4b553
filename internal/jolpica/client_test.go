package jolpica

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const racesBody = `{"MRData":{"RaceTable":{"Races":[
	{"season":"2025","round":"1","raceName":"Australian Grand Prix",
	 "date":"2025-03-16","time":"04:00:00Z",
	 "Circuit":{"circuitId":"albert_park","circuitName":"Albert Park Grand Prix Circuit",
	            "Location":{"locality":"Melbourne","country":"Australia"}}}
]}}}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := &Config{
		BaseURL:         baseURL,
		RequestTimeout:  time.Second,
		RequestInterval: time.Millisecond,
		RateLimitPause:  time.Millisecond,
		PageSize:        30,
	}

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)

	return client
}

func TestClient_SeasonRaces_DecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2025/races/", r.URL.Path)
		_, _ = w.Write([]byte(racesBody))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	races, err := client.SeasonRaces(context.Background(), "2025")

	require.NoError(t, err)
	require.Len(t, races, 1)
	assert.Equal(t, "1", races[0].Round)
	assert.Equal(t, "Australian Grand Prix", races[0].RaceName)
	assert.Equal(t, "albert_park", races[0].Circuit.CircuitID)
}

func TestClient_NotFoundClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.Qualifying(context.Background(), "2025", 1)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RateLimitRetriesOnce(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte(racesBody))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	races, err := client.SeasonRaces(context.Background(), "2025")

	require.NoError(t, err)
	assert.Len(t, races, 1)
	assert.Equal(t, 2, requests)
}

func TestClient_PersistentRateLimitSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.SeasonRaces(context.Background(), "2025")

	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClient_ServerErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.SeasonRaces(context.Background(), "2025")

	assert.ErrorIs(t, err, ErrUpstreamStatus)
}

func TestClient_MalformedEnvelopeIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	races, err := client.SeasonRaces(context.Background(), "2025")

	require.NoError(t, err)
	assert.Empty(t, races)
}

func TestClient_EmptyRaceTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"MRData":{"RaceTable":{"Races":[]}}}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	quali, err := client.Qualifying(context.Background(), "2025", 1)

	require.NoError(t, err)
	assert.Empty(t, quali)
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(racesBody))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SeasonRaces(ctx, "2025")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_LapsPageBuildsOffsets(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"MRData":{"RaceTable":{"Races":[{"Laps":[
			{"number":"1","Timings":[{"driverId":"max_verstappen","position":"1","time":"1:32.807"}]}
		]}]}}}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	laps, err := client.LapsPage(context.Background(), "2025", 3, 60)

	require.NoError(t, err)
	require.Len(t, laps, 1)
	assert.Equal(t, "max_verstappen", laps[0].Timings[0].DriverID)
	assert.Contains(t, gotQuery, "limit=30")
	assert.Contains(t, gotQuery, "offset=60")
}
