package ingest

import (
	"context"
	"errors"
	"strconv"

	"github.com/pitwall-io/pitwall/internal/jolpica"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	seasons      []Season
	circuits     []CircuitRef
	drivers      []DriverRef
	constructors []ConstructorRef

	races      map[RaceKey]*Race
	qualifying map[QualifyingKey]*QualifyingResult
	laps       map[LapKey]*Lap
	pitStops   map[PitStopKey]*PitStop

	nextRaceID int64

	failFind   error // returned by every existence check when set
	failInsert error // returned by every insert when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		races:      make(map[RaceKey]*Race),
		qualifying: make(map[QualifyingKey]*QualifyingResult),
		laps:       make(map[LapKey]*Lap),
		pitStops:   make(map[PitStopKey]*PitStop),
	}
}

func (f *fakeStore) ListSeasons(context.Context) ([]Season, error)           { return f.seasons, nil }
func (f *fakeStore) ListCircuits(context.Context) ([]CircuitRef, error)      { return f.circuits, nil }
func (f *fakeStore) ListDrivers(context.Context) ([]DriverRef, error)        { return f.drivers, nil }
func (f *fakeStore) ListConstructors(context.Context) ([]ConstructorRef, error) {
	return f.constructors, nil
}

func (f *fakeStore) ListRacesBySeason(_ context.Context, seasonID int64) ([]Race, error) {
	var races []Race

	for _, race := range f.races {
		if race.SeasonID == seasonID {
			races = append(races, *race)
		}
	}

	return races, nil
}

func (f *fakeStore) FindRace(_ context.Context, key RaceKey) (*Race, error) {
	if f.failFind != nil {
		return nil, f.failFind
	}

	race, ok := f.races[key]
	if !ok {
		return nil, nil
	}

	copied := *race

	return &copied, nil
}

func (f *fakeStore) InsertRace(_ context.Context, race *Race) error {
	if f.failInsert != nil {
		return f.failInsert
	}

	f.nextRaceID++
	race.ID = f.nextRaceID

	copied := *race
	f.races[RaceKey{SeasonID: race.SeasonID, Round: race.Round}] = &copied

	return nil
}

func (f *fakeStore) UpdateRace(_ context.Context, id int64, race *Race) error {
	if f.failInsert != nil {
		return f.failInsert
	}

	copied := *race
	copied.ID = id
	f.races[RaceKey{SeasonID: race.SeasonID, Round: race.Round}] = &copied

	return nil
}

func (f *fakeStore) QualifyingExists(_ context.Context, key QualifyingKey) (bool, error) {
	if f.failFind != nil {
		return false, f.failFind
	}

	_, ok := f.qualifying[key]

	return ok, nil
}

func (f *fakeStore) InsertQualifyingResult(_ context.Context, result *QualifyingResult) error {
	if f.failInsert != nil {
		return f.failInsert
	}

	copied := *result
	f.qualifying[QualifyingKey{SessionID: result.SessionID, DriverID: result.DriverID}] = &copied

	return nil
}

func (f *fakeStore) LapExists(_ context.Context, key LapKey) (bool, error) {
	if f.failFind != nil {
		return false, f.failFind
	}

	_, ok := f.laps[key]

	return ok, nil
}

func (f *fakeStore) InsertLap(_ context.Context, lap *Lap) error {
	if f.failInsert != nil {
		return f.failInsert
	}

	copied := *lap
	f.laps[LapKey{RaceID: lap.RaceID, DriverID: lap.DriverID, LapNumber: lap.LapNumber}] = &copied

	return nil
}

func (f *fakeStore) PitStopExists(_ context.Context, key PitStopKey) (bool, error) {
	if f.failFind != nil {
		return false, f.failFind
	}

	_, ok := f.pitStops[key]

	return ok, nil
}

func (f *fakeStore) InsertPitStop(_ context.Context, stop *PitStop) error {
	if f.failInsert != nil {
		return f.failInsert
	}

	copied := *stop
	key := PitStopKey{
		RaceID:     stop.RaceID,
		DriverID:   stop.DriverID,
		LapNumber:  stop.LapNumber,
		StopNumber: stop.StopNumber,
	}
	f.pitStops[key] = &copied

	return nil
}

var _ Store = (*fakeStore)(nil)

// errNoScript marks a fake API call the test did not script.
var errNoScript = errors.New("fake API call not scripted")

// fakeAPI serves scripted responses keyed by season (races) or season+round
// (everything else). Lap pages are served from lapPages in order.
type fakeAPI struct {
	races      map[string][]jolpica.Race
	racesErr   error
	qualifying map[string][]jolpica.QualifyingResult
	qualiErr   error
	lapPages   map[string][][]jolpica.Lap
	lapErrAt   map[string]int // page index at which LapsPage fails
	lapErr     error
	pitStops   map[string][]jolpica.PitStop
	pitErr     error
	pageSize   int

	lapCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		races:      make(map[string][]jolpica.Race),
		qualifying: make(map[string][]jolpica.QualifyingResult),
		lapPages:   make(map[string][][]jolpica.Lap),
		lapErrAt:   make(map[string]int),
		pitStops:   make(map[string][]jolpica.PitStop),
		pageSize:   30,
	}
}

func raceSlot(season string, round int) string {
	return season + "/" + strconv.Itoa(round)
}

func (f *fakeAPI) SeasonRaces(_ context.Context, season string) ([]jolpica.Race, error) {
	if f.racesErr != nil {
		return nil, f.racesErr
	}

	races, ok := f.races[season]
	if !ok {
		return nil, errNoScript
	}

	return races, nil
}

func (f *fakeAPI) Qualifying(_ context.Context, season string, round int) ([]jolpica.QualifyingResult, error) {
	if f.qualiErr != nil {
		return nil, f.qualiErr
	}

	items, ok := f.qualifying[raceSlot(season, round)]
	if !ok {
		return nil, errNoScript
	}

	return items, nil
}

func (f *fakeAPI) LapsPage(_ context.Context, season string, round, offset int) ([]jolpica.Lap, error) {
	f.lapCalls++

	slot := raceSlot(season, round)
	page := offset / f.pageSize

	if f.lapErr != nil {
		if failAt, ok := f.lapErrAt[slot]; ok && page >= failAt {
			return nil, f.lapErr
		}
	}

	pages, ok := f.lapPages[slot]
	if !ok {
		return nil, errNoScript
	}

	if page >= len(pages) {
		return nil, nil
	}

	return pages[page], nil
}

func (f *fakeAPI) PitStops(_ context.Context, season string, round int) ([]jolpica.PitStop, error) {
	if f.pitErr != nil {
		return nil, f.pitErr
	}

	stops, ok := f.pitStops[raceSlot(season, round)]
	if !ok {
		return nil, errNoScript
	}

	return stops, nil
}

func (f *fakeAPI) PageSize() int { return f.pageSize }

var _ ResultsAPI = (*fakeAPI)(nil)
