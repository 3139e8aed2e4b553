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

func apiRace(round int, name, circuitKey, circuitName string) jolpica.Race {
	return jolpica.Race{
		Season:   "2025",
		Round:    strconv.Itoa(round),
		RaceName: name,
		Date:     "2025-03-16",
		Time:     "04:00:00Z",
		Circuit: jolpica.Circuit{
			CircuitID:   circuitKey,
			CircuitName: circuitName,
		},
	}
}

func circuitResolver(circuits ...CircuitRef) *identity.Resolver {
	r := identity.NewResolver()
	for _, c := range circuits {
		r.AddCircuit(c.ID, c.Name)
	}

	return r
}

func TestRaceReconciler_InsertsNewRaces(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.races["2025"] = []jolpica.Race{
		apiRace(1, "Australian Grand Prix", "albert_park", "Albert Park Grand Prix Circuit"),
		apiRace(2, "Chinese Grand Prix", "shanghai", "Shanghai International Circuit"),
	}
	resolver := circuitResolver(
		CircuitRef{ID: 1, Name: "Albert Park Grand Prix Circuit"},
		CircuitRef{ID: 2, Name: "Shanghai International Circuit"},
	)
	rec := NewRaceReconciler(store, api, resolver, nil)

	summary, err := rec.ReconcileSeason(context.Background(), Season{ID: 10, Year: 2025})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Failed)
	assert.Len(t, store.races, 2)
}

func TestRaceReconciler_SecondRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.races["2025"] = []jolpica.Race{
		apiRace(1, "Australian Grand Prix", "albert_park", "Albert Park Grand Prix Circuit"),
	}
	resolver := circuitResolver(CircuitRef{ID: 1, Name: "Albert Park Grand Prix Circuit"})
	rec := NewRaceReconciler(store, api, resolver, nil)
	season := Season{ID: 10, Year: 2025}

	first, err := rec.ReconcileSeason(context.Background(), season)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := rec.ReconcileSeason(context.Background(), season)

	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
}

func TestRaceReconciler_UpdatesChangedRace(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.races["2025"] = []jolpica.Race{
		apiRace(1, "Australian Grand Prix", "albert_park", "Albert Park Grand Prix Circuit"),
	}
	resolver := circuitResolver(CircuitRef{ID: 1, Name: "Albert Park Grand Prix Circuit"})
	rec := NewRaceReconciler(store, api, resolver, nil)
	season := Season{ID: 10, Year: 2025}

	_, err := rec.ReconcileSeason(context.Background(), season)
	require.NoError(t, err)

	// Calendar shift upstream: same natural key, new date.
	api.races["2025"][0].Date = "2025-03-23"

	summary, err := rec.ReconcileSeason(context.Background(), season)

	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, "2025-03-23", store.races[RaceKey{SeasonID: 10, Round: 1}].Date)
}

func TestRaceReconciler_UnresolvedCircuitFailsRaceOnly(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.races["2025"] = []jolpica.Race{
		apiRace(1, "Race One", "circuit_a", "Circuit A"),
		apiRace(2, "Race Two", "circuit_b", "Circuit B"),
		apiRace(3, "Race Three", "unknown_circuit", "Nowhere Raceway"),
		apiRace(4, "Race Four", "circuit_d", "Circuit D"),
		apiRace(5, "Race Five", "circuit_e", "Circuit E"),
	}
	resolver := circuitResolver(
		CircuitRef{ID: 1, Name: "Circuit A"},
		CircuitRef{ID: 2, Name: "Circuit B"},
		CircuitRef{ID: 4, Name: "Circuit D"},
		CircuitRef{ID: 5, Name: "Circuit E"},
	)
	rec := NewRaceReconciler(store, api, resolver, nil)

	summary, err := rec.ReconcileSeason(context.Background(), Season{ID: 10, Year: 2025})

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, store.races, 4)
	assert.NotContains(t, store.races, RaceKey{SeasonID: 10, Round: 3})
}

func TestRaceReconciler_DefaultsMissingStartTime(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	race := apiRace(1, "Historic Grand Prix", "monza", "Autodromo Nazionale di Monza")
	race.Time = ""
	api.races["2025"] = []jolpica.Race{race}
	resolver := circuitResolver(CircuitRef{ID: 14, Name: "Autodromo Nazionale di Monza"})
	rec := NewRaceReconciler(store, api, resolver, nil)

	_, err := rec.ReconcileSeason(context.Background(), Season{ID: 10, Year: 2025})

	require.NoError(t, err)
	assert.Equal(t, "00:00:00Z", store.races[RaceKey{SeasonID: 10, Round: 1}].Time)
}

func TestRaceReconciler_NotFoundSeasonIsNoData(t *testing.T) {
	store := newFakeStore()
	api := newFakeAPI()
	api.racesErr = jolpica.ErrNotFound
	rec := NewRaceReconciler(store, api, identity.NewResolver(), nil)

	summary, err := rec.ReconcileSeason(context.Background(), Season{ID: 10, Year: 2025})

	require.NoError(t, err)
	assert.Zero(t, summary.Created)
}

func TestRaceReconciler_StoreErrorsCountAsFailures(t *testing.T) {
	store := newFakeStore()
	store.failFind = assert.AnError
	api := newFakeAPI()
	api.races["2025"] = []jolpica.Race{
		apiRace(1, "Australian Grand Prix", "albert_park", "Albert Park Grand Prix Circuit"),
	}
	resolver := circuitResolver(CircuitRef{ID: 1, Name: "Albert Park Grand Prix Circuit"})
	rec := NewRaceReconciler(store, api, resolver, nil)

	summary, err := rec.ReconcileSeason(context.Background(), Season{ID: 10, Year: 2025})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, store.races)
}
