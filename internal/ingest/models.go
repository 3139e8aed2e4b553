// Package ingest provides the domain model and reconciliation logic for the
// race-data synchronization pipeline.
//
// This package defines the Store interface which represents what the domain
// needs for persistence, following the Dependency Inversion Principle.
// Concrete implementations (PostgreSQL, in-memory) live in internal/storage.
//
// Reconciliation is keyed entirely by natural keys: re-running any job
// against unchanged source data produces zero new creates and zero changed
// updates. Races are the only fact updated in place; qualifying results,
// laps and pit stops are immutable history and insert-once.
package ingest

import "database/sql"

type (
	// Season is a reference row owned by the CRUD layer; the pipeline only
	// reads it.
	Season struct {
		ID   int64
		Year int
	}

	// CircuitRef is the circuit reference view the resolver is built from.
	CircuitRef struct {
		ID   int64
		Name string
	}

	// DriverRef is the driver reference view the resolver is built from.
	// Code and PermanentNumber are optional (zero means absent).
	DriverRef struct {
		ID              int64
		FirstName       string
		LastName        string
		Code            string
		PermanentNumber int
	}

	// ConstructorRef is the constructor reference view the resolver is
	// built from. ExternalKey is the upstream constructor identifier.
	ConstructorRef struct {
		ID          int64
		ExternalKey string
		Name        string
	}

	// Race is a fact row produced by the races job and a reference row for
	// the timing jobs. Natural key: (SeasonID, Round) - round numbers are
	// season-scoped.
	Race struct {
		ID        int64
		SeasonID  int64
		CircuitID int64
		Round     int
		Name      string
		Date      string
		Time      string
	}

	// RaceKey is the natural key of a Race.
	RaceKey struct {
		SeasonID int64
		Round    int
	}

	// QualifyingResult is one driver's qualifying classification for a
	// session. Natural key: (SessionID, DriverID). Segment times are NULL
	// when the driver did not set a time in that segment.
	QualifyingResult struct {
		SessionID     int64
		DriverID      int64
		ConstructorID int64
		Position      int
		Q1TimeMS      sql.NullInt64
		Q2TimeMS      sql.NullInt64
		Q3TimeMS      sql.NullInt64
	}

	// QualifyingKey is the natural key of a QualifyingResult.
	QualifyingKey struct {
		SessionID int64
		DriverID  int64
	}

	// Lap is one driver's timing record for one lap of one race.
	// Natural key: (RaceID, DriverID, LapNumber).
	Lap struct {
		RaceID    int64
		DriverID  int64
		LapNumber int
		Position  int
		TimeMS    sql.NullInt64
	}

	// LapKey is the natural key of a Lap.
	LapKey struct {
		RaceID    int64
		DriverID  int64
		LapNumber int
	}

	// PitStop is one pit stop entry.
	// Natural key: (RaceID, DriverID, LapNumber, StopNumber).
	PitStop struct {
		RaceID     int64
		DriverID   int64
		LapNumber  int
		StopNumber int
		DurationMS sql.NullInt64
	}

	// PitStopKey is the natural key of a PitStop.
	PitStopKey struct {
		RaceID     int64
		DriverID   int64
		LapNumber  int
		StopNumber int
	}
)

// Outcome is the terminal state of one reconciled item:
// Fetched -> Resolved -> {Inserted | Updated | Unchanged | SkippedExisting | SkippedUnresolved | SkippedError}.
// Unchanged is a race whose stored row already matches the source;
// SkippedExisting is a natural-key hit on an insert-once fact, where
// presence alone is proof-of-already-ingested.
type Outcome int

// Item outcomes.
const (
	OutcomeInserted Outcome = iota
	OutcomeUpdated
	OutcomeUnchanged
	OutcomeSkippedExisting
	OutcomeSkippedUnresolved
	OutcomeSkippedError
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSkippedExisting:
		return "skipped_existing"
	case OutcomeSkippedUnresolved:
		return "skipped_unresolved"
	case OutcomeSkippedError:
		return "skipped_error"
	default:
		return "unknown"
	}
}

// Summary aggregates item outcomes across a run. Skipped counts both
// unresolved references and store-level item failures alongside
// already-ingested natural-key matches; Failed counts whole races that
// errored (unresolvable circuit, failed fetch) without aborting the run.
type Summary struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

// Record counts one item outcome.
func (s *Summary) Record(o Outcome) {
	switch o {
	case OutcomeInserted:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		// processed, not created or updated
	case OutcomeSkippedExisting, OutcomeSkippedUnresolved, OutcomeSkippedError:
		s.Skipped++
	}
}

// Merge adds another summary's counts into this one.
func (s *Summary) Merge(other Summary) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}
