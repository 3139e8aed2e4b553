package ingest

import (
	"context"
	"errors"
)

// Fatal configuration errors: the only conditions that abort a whole run,
// since every downstream row would be unwritable.
var (
	// ErrNoSeasons is returned when the store holds no seasons at all.
	ErrNoSeasons = errors.New("no seasons present, ingestion aborted")

	// ErrNoCircuits is returned when the store holds no circuits at all.
	ErrNoCircuits = errors.New("no circuits present, ingestion aborted")

	// ErrCircuitUnresolved fails one race's reconciliation; writing the race
	// anyway would orphan every downstream qualifying and lap row.
	ErrCircuitUnresolved = errors.New("circuit could not be resolved")
)

// Store defines the persistence contract the pipeline depends on.
//
// Reference reads (seasons, circuits, drivers, constructors, races) are owned
// by the excluded CRUD layer; the pipeline fetches each full set once per run
// to build resolution indices. Fact writes are keyed by natural key and must
// be independently atomic per row - there is no cross-row transaction
// spanning a season, so a failed item never rolls back its neighbors.
type Store interface {
	// ListSeasons returns all seasons, newest year first.
	ListSeasons(ctx context.Context) ([]Season, error)

	// ListCircuits returns the full circuit reference set.
	ListCircuits(ctx context.Context) ([]CircuitRef, error)

	// ListDrivers returns the full driver reference set.
	ListDrivers(ctx context.Context) ([]DriverRef, error)

	// ListConstructors returns the full constructor reference set.
	ListConstructors(ctx context.Context) ([]ConstructorRef, error)

	// ListRacesBySeason returns the stored races for one season in round order.
	ListRacesBySeason(ctx context.Context, seasonID int64) ([]Race, error)

	// FindRace returns the race with the given natural key, or nil when absent.
	FindRace(ctx context.Context, key RaceKey) (*Race, error)

	// InsertRace writes a new race row.
	InsertRace(ctx context.Context, race *Race) error

	// UpdateRace overwrites the mutable fields of an existing race row.
	UpdateRace(ctx context.Context, id int64, race *Race) error

	// QualifyingExists reports whether a qualifying result with the given
	// natural key is already stored.
	QualifyingExists(ctx context.Context, key QualifyingKey) (bool, error)

	// InsertQualifyingResult writes a new qualifying result row.
	InsertQualifyingResult(ctx context.Context, result *QualifyingResult) error

	// LapExists reports whether a lap with the given natural key is already stored.
	LapExists(ctx context.Context, key LapKey) (bool, error)

	// InsertLap writes a new lap row.
	InsertLap(ctx context.Context, lap *Lap) error

	// PitStopExists reports whether a pit stop with the given natural key is
	// already stored.
	PitStopExists(ctx context.Context, key PitStopKey) (bool, error)

	// InsertPitStop writes a new pit stop row.
	InsertPitStop(ctx context.Context, stop *PitStop) error
}
