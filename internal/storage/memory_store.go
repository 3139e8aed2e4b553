package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pitwall-io/pitwall/internal/ingest"
)

// MemoryStore is a thread-safe in-memory implementation of ingest.Store.
//
// It serves two purposes: unit tests that need a store without a database,
// and dry runs. In dry-run mode a MemoryStore is constructed with a backing
// store; reference reads pass through to the backing store so resolution
// behaves exactly as it would for real, while all fact reads and writes stay
// in memory and are discarded when the run ends.
type MemoryStore struct {
	backing ingest.Store // optional, reference reads only

	mutex        sync.RWMutex
	seasons      []ingest.Season
	circuits     []ingest.CircuitRef
	drivers      []ingest.DriverRef
	constructors []ingest.ConstructorRef
	races        map[ingest.RaceKey]*ingest.Race
	racesByID    map[int64]*ingest.Race
	qualifying   map[ingest.QualifyingKey]*ingest.QualifyingResult
	laps         map[ingest.LapKey]*ingest.Lap
	pitStops     map[ingest.PitStopKey]*ingest.PitStop
	nextRaceID   int64
}

// Compile-time interface check.
var _ ingest.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store. Seed reference data with
// the Add* methods before running jobs against it.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		races:      make(map[ingest.RaceKey]*ingest.Race),
		racesByID:  make(map[int64]*ingest.Race),
		qualifying: make(map[ingest.QualifyingKey]*ingest.QualifyingResult),
		laps:       make(map[ingest.LapKey]*ingest.Lap),
		pitStops:   make(map[ingest.PitStopKey]*ingest.PitStop),
		nextRaceID: 1,
	}
}

// NewDryRunStore creates a MemoryStore that reads reference data through the
// given backing store and keeps every fact write in memory.
func NewDryRunStore(backing ingest.Store) *MemoryStore {
	store := NewMemoryStore()
	store.backing = backing

	return store
}

// AddSeason seeds a season reference row.
func (s *MemoryStore) AddSeason(season ingest.Season) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seasons = append(s.seasons, season)
}

// AddCircuit seeds a circuit reference row.
func (s *MemoryStore) AddCircuit(circuit ingest.CircuitRef) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.circuits = append(s.circuits, circuit)
}

// AddDriver seeds a driver reference row.
func (s *MemoryStore) AddDriver(driver ingest.DriverRef) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.drivers = append(s.drivers, driver)
}

// AddConstructor seeds a constructor reference row.
func (s *MemoryStore) AddConstructor(constructor ingest.ConstructorRef) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.constructors = append(s.constructors, constructor)
}

// ListSeasons implements ingest.Store.
func (s *MemoryStore) ListSeasons(ctx context.Context) ([]ingest.Season, error) {
	if s.backing != nil {
		return s.backing.ListSeasons(ctx)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	seasons := make([]ingest.Season, len(s.seasons))
	copy(seasons, s.seasons)

	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Year > seasons[j].Year })

	return seasons, nil
}

// ListCircuits implements ingest.Store.
func (s *MemoryStore) ListCircuits(ctx context.Context) ([]ingest.CircuitRef, error) {
	if s.backing != nil {
		return s.backing.ListCircuits(ctx)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	circuits := make([]ingest.CircuitRef, len(s.circuits))
	copy(circuits, s.circuits)

	return circuits, nil
}

// ListDrivers implements ingest.Store.
func (s *MemoryStore) ListDrivers(ctx context.Context) ([]ingest.DriverRef, error) {
	if s.backing != nil {
		return s.backing.ListDrivers(ctx)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	drivers := make([]ingest.DriverRef, len(s.drivers))
	copy(drivers, s.drivers)

	return drivers, nil
}

// ListConstructors implements ingest.Store.
func (s *MemoryStore) ListConstructors(ctx context.Context) ([]ingest.ConstructorRef, error) {
	if s.backing != nil {
		return s.backing.ListConstructors(ctx)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	constructors := make([]ingest.ConstructorRef, len(s.constructors))
	copy(constructors, s.constructors)

	return constructors, nil
}

// ListRacesBySeason implements ingest.Store. In dry-run mode stored races are
// read from the backing store first so timing jobs can key against real race
// ids, then overlaid with races written during this run.
func (s *MemoryStore) ListRacesBySeason(ctx context.Context, seasonID int64) ([]ingest.Race, error) {
	byKey := make(map[ingest.RaceKey]ingest.Race)

	if s.backing != nil {
		stored, err := s.backing.ListRacesBySeason(ctx, seasonID)
		if err != nil {
			return nil, err
		}

		for _, race := range stored {
			byKey[ingest.RaceKey{SeasonID: race.SeasonID, Round: race.Round}] = race
		}
	}

	s.mutex.RLock()

	for key, race := range s.races {
		if race.SeasonID == seasonID {
			byKey[key] = *race
		}
	}

	s.mutex.RUnlock()

	races := make([]ingest.Race, 0, len(byKey))
	for _, race := range byKey {
		races = append(races, race)
	}

	sort.Slice(races, func(i, j int) bool { return races[i].Round < races[j].Round })

	return races, nil
}

// FindRace implements ingest.Store.
func (s *MemoryStore) FindRace(ctx context.Context, key ingest.RaceKey) (*ingest.Race, error) {
	s.mutex.RLock()

	if race, ok := s.races[key]; ok {
		raceCopy := *race
		s.mutex.RUnlock()

		return &raceCopy, nil
	}

	s.mutex.RUnlock()

	if s.backing != nil {
		return s.backing.FindRace(ctx, key)
	}

	return nil, nil
}

// InsertRace implements ingest.Store.
func (s *MemoryStore) InsertRace(_ context.Context, race *ingest.Race) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	race.ID = s.nextRaceID
	s.nextRaceID++

	raceCopy := *race
	s.races[ingest.RaceKey{SeasonID: race.SeasonID, Round: race.Round}] = &raceCopy
	s.racesByID[race.ID] = &raceCopy

	return nil
}

// UpdateRace implements ingest.Store. Updates to races that live only in the
// backing store are recorded as in-memory overlays.
func (s *MemoryStore) UpdateRace(_ context.Context, id int64, race *ingest.Race) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	raceCopy := *race
	raceCopy.ID = id
	s.races[ingest.RaceKey{SeasonID: race.SeasonID, Round: race.Round}] = &raceCopy
	s.racesByID[id] = &raceCopy

	return nil
}

// QualifyingExists implements ingest.Store.
func (s *MemoryStore) QualifyingExists(ctx context.Context, key ingest.QualifyingKey) (bool, error) {
	s.mutex.RLock()
	_, ok := s.qualifying[key]
	s.mutex.RUnlock()

	if ok {
		return true, nil
	}

	if s.backing != nil {
		return s.backing.QualifyingExists(ctx, key)
	}

	return false, nil
}

// InsertQualifyingResult implements ingest.Store.
func (s *MemoryStore) InsertQualifyingResult(_ context.Context, result *ingest.QualifyingResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	resultCopy := *result
	s.qualifying[ingest.QualifyingKey{SessionID: result.SessionID, DriverID: result.DriverID}] = &resultCopy

	return nil
}

// LapExists implements ingest.Store.
func (s *MemoryStore) LapExists(ctx context.Context, key ingest.LapKey) (bool, error) {
	s.mutex.RLock()
	_, ok := s.laps[key]
	s.mutex.RUnlock()

	if ok {
		return true, nil
	}

	if s.backing != nil {
		return s.backing.LapExists(ctx, key)
	}

	return false, nil
}

// InsertLap implements ingest.Store.
func (s *MemoryStore) InsertLap(_ context.Context, lap *ingest.Lap) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lapCopy := *lap
	s.laps[ingest.LapKey{RaceID: lap.RaceID, DriverID: lap.DriverID, LapNumber: lap.LapNumber}] = &lapCopy

	return nil
}

// PitStopExists implements ingest.Store.
func (s *MemoryStore) PitStopExists(ctx context.Context, key ingest.PitStopKey) (bool, error) {
	s.mutex.RLock()
	_, ok := s.pitStops[key]
	s.mutex.RUnlock()

	if ok {
		return true, nil
	}

	if s.backing != nil {
		return s.backing.PitStopExists(ctx, key)
	}

	return false, nil
}

// InsertPitStop implements ingest.Store.
func (s *MemoryStore) InsertPitStop(_ context.Context, stop *ingest.PitStop) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stopCopy := *stop
	key := ingest.PitStopKey{
		RaceID:     stop.RaceID,
		DriverID:   stop.DriverID,
		LapNumber:  stop.LapNumber,
		StopNumber: stop.StopNumber,
	}
	s.pitStops[key] = &stopCopy

	return nil
}

// FactCounts reports how many fact rows the store holds, used by dry runs to
// log what would have been written.
func (s *MemoryStore) FactCounts() (races, qualifying, laps, pitStops int) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.races), len(s.qualifying), len(s.laps), len(s.pitStops)
}
