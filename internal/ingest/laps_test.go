package ingest

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall-io/pitwall/internal/identity"
	"github.com/pitwall-io/pitwall/internal/jolpica"
)

func lapGroup(number int, timings ...jolpica.Timing) jolpica.Lap {
	return jolpica.Lap{Number: strconv.Itoa(number), Timings: timings}
}

func verTiming(position, time string) jolpica.Timing {
	return jolpica.Timing{DriverID: "max_verstappen", Position: position, Time: time}
}

func lapResolver() *identity.Resolver {
	r := identity.NewResolver()
	r.AddDriver(1, "Max", "Verstappen", "VER", 1)

	return r
}

func TestLapReconciler_IngestsAllPages(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()

	// Three pages: two full, one short. 72 lap groups, one timing each.
	var pages [][]jolpica.Lap

	lap := 1

	for _, size := range []int{30, 30, 12} {
		page := make([]jolpica.Lap, 0, size)
		for range size {
			page = append(page, lapGroup(lap, verTiming("1", "1:32.807")))
			lap++
		}

		pages = append(pages, page)
	}

	api.lapPages["2025/1"] = pages
	rec := NewLapReconciler(store, api, lapResolver(), nil)

	summary, err := rec.ReconcileRace(context.Background(), 2025, &Race{ID: 100, Round: 1})

	require.NoError(t, err)
	assert.Equal(t, 72, summary.Created)
	assert.Equal(t, 3, api.lapCalls)
	assert.Len(t, store.laps, 72)
}

func TestLapReconciler_EmptyFirstPageIsNoData(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.lapPages["2025/1"] = nil
	rec := NewLapReconciler(store, api, lapResolver(), nil)

	summary, err := rec.ReconcileRace(context.Background(), 2025, &Race{ID: 100, Round: 1})

	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 1, api.lapCalls)
}

func TestLapReconciler_DuplicateNaturalKeyNotOverwritten(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.lapPages["2025/1"] = [][]jolpica.Lap{{lapGroup(5, verTiming("1", "1:32.807"))}}
	rec := NewLapReconciler(store, api, lapResolver(), nil)
	race := &Race{ID: 100, Round: 1}

	first, err := rec.ReconcileRace(context.Background(), 2025, race)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	// Same natural key, different time: presence wins, nothing changes.
	api.lapPages["2025/1"] = [][]jolpica.Lap{{lapGroup(5, verTiming("1", "1:30.000"))}}

	second, err := rec.ReconcileRace(context.Background(), 2025, race)

	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 1, second.Skipped)
	require.Len(t, store.laps, 1)

	stored := store.laps[LapKey{RaceID: 100, DriverID: 1, LapNumber: 5}]
	require.NotNil(t, stored)
	assert.Equal(t, int64(92807), stored.TimeMS.Int64)
}

func TestLapReconciler_MidLoopErrorKeepsAccumulatedPages(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()

	page := make([]jolpica.Lap, 0, 30)
	for lap := 1; lap <= 30; lap++ {
		page = append(page, lapGroup(lap, verTiming("1", "1:32.807")))
	}

	api.lapPages["2025/1"] = [][]jolpica.Lap{page}
	api.lapErr = assert.AnError
	api.lapErrAt["2025/1"] = 1 // second page fails
	rec := NewLapReconciler(store, api, lapResolver(), nil)

	summary, err := rec.ReconcileRace(context.Background(), 2025, &Race{ID: 100, Round: 1})

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 30, summary.Created)
	assert.Len(t, store.laps, 30)
}

func TestLapReconciler_UnresolvedDriverSkipped(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.lapPages["2025/1"] = [][]jolpica.Lap{{
		lapGroup(1,
			verTiming("1", "1:32.807"),
			jolpica.Timing{DriverID: "mystery_rookie", Position: "2", Time: "1:33.100"},
		),
	}}
	rec := NewLapReconciler(store, api, lapResolver(), nil)

	summary, err := rec.ReconcileRace(context.Background(), 2025, &Race{ID: 100, Round: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
}

func TestLapReconciler_MalformedTimeBecomesNull(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.lapPages["2025/1"] = [][]jolpica.Lap{{lapGroup(1, verTiming("1", "garbled"))}}
	rec := NewLapReconciler(store, api, lapResolver(), nil)

	summary, err := rec.ReconcileRace(context.Background(), 2025, &Race{ID: 100, Round: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	stored := store.laps[LapKey{RaceID: 100, DriverID: 1, LapNumber: 1}]
	require.NotNil(t, stored)
	assert.False(t, stored.TimeMS.Valid)
}
