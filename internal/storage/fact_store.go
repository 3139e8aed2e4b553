// Package storage provides persistence implementations for the ingestion
// pipeline: a PostgreSQL FactStore for production and an in-memory
// MemoryStore for dry runs and tests.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pitwall-io/pitwall/internal/ingest"
)

// ErrNoDatabaseConnection is returned when a store is constructed without a connection.
var ErrNoDatabaseConnection = errors.New("no database connection")

// FactStore implements ingest.Store with a PostgreSQL backend. Reference
// tables are read-only here; fact writes go through natural-key existence
// checks plus ON CONFLICT guards so concurrent runs cannot double-insert.
type FactStore struct {
	conn   *Connection
	logger *slog.Logger
}

// Compile-time interface check.
var _ ingest.Store = (*FactStore)(nil)

// NewFactStore creates a PostgreSQL-backed fact store.
func NewFactStore(conn *Connection, logger *slog.Logger) (*FactStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &FactStore{conn: conn, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *FactStore) Close() error {
	return s.conn.Close()
}

// ListSeasons implements ingest.Store.
func (s *FactStore) ListSeasons(ctx context.Context) ([]ingest.Season, error) {
	query := `SELECT id, year FROM seasons ORDER BY year DESC`

	rows, err := s.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var seasons []ingest.Season

	for rows.Next() {
		var season ingest.Season
		if err := rows.Scan(&season.ID, &season.Year); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}

		seasons = append(seasons, season)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seasons: %w", err)
	}

	return seasons, nil
}

// ListCircuits implements ingest.Store.
func (s *FactStore) ListCircuits(ctx context.Context) ([]ingest.CircuitRef, error) {
	query := `SELECT id, name FROM circuits ORDER BY id`

	rows, err := s.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var circuits []ingest.CircuitRef

	for rows.Next() {
		var circuit ingest.CircuitRef
		if err := rows.Scan(&circuit.ID, &circuit.Name); err != nil {
			return nil, fmt.Errorf("failed to scan circuit: %w", err)
		}

		circuits = append(circuits, circuit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate circuits: %w", err)
	}

	return circuits, nil
}

// ListDrivers implements ingest.Store.
func (s *FactStore) ListDrivers(ctx context.Context) ([]ingest.DriverRef, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(code, ''), COALESCE(permanent_number, 0)
		FROM drivers
		ORDER BY id
	`

	rows, err := s.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var drivers []ingest.DriverRef

	for rows.Next() {
		var driver ingest.DriverRef

		err := rows.Scan(
			&driver.ID,
			&driver.FirstName,
			&driver.LastName,
			&driver.Code,
			&driver.PermanentNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}

		drivers = append(drivers, driver)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drivers: %w", err)
	}

	return drivers, nil
}

// ListConstructors implements ingest.Store.
func (s *FactStore) ListConstructors(ctx context.Context) ([]ingest.ConstructorRef, error) {
	query := `SELECT id, external_key, name FROM constructors ORDER BY id`

	rows, err := s.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list constructors: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var constructors []ingest.ConstructorRef

	for rows.Next() {
		var constructor ingest.ConstructorRef
		if err := rows.Scan(&constructor.ID, &constructor.ExternalKey, &constructor.Name); err != nil {
			return nil, fmt.Errorf("failed to scan constructor: %w", err)
		}

		constructors = append(constructors, constructor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate constructors: %w", err)
	}

	return constructors, nil
}

// ListRacesBySeason implements ingest.Store.
func (s *FactStore) ListRacesBySeason(ctx context.Context, seasonID int64) ([]ingest.Race, error) {
	query := `
		SELECT id, season_id, circuit_id, round, name, race_date, race_time
		FROM races
		WHERE season_id = $1
		ORDER BY round
	`

	rows, err := s.conn.DB().QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list races for season %d: %w", seasonID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var races []ingest.Race

	for rows.Next() {
		var race ingest.Race

		err := rows.Scan(
			&race.ID,
			&race.SeasonID,
			&race.CircuitID,
			&race.Round,
			&race.Name,
			&race.Date,
			&race.Time,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}

		races = append(races, race)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate races: %w", err)
	}

	return races, nil
}

// FindRace implements ingest.Store. Returns nil without error when no race
// matches the natural key.
func (s *FactStore) FindRace(ctx context.Context, key ingest.RaceKey) (*ingest.Race, error) {
	query := `
		SELECT id, season_id, circuit_id, round, name, race_date, race_time
		FROM races
		WHERE season_id = $1 AND round = $2
	`

	var race ingest.Race

	err := s.conn.DB().QueryRowContext(ctx, query, key.SeasonID, key.Round).Scan(
		&race.ID,
		&race.SeasonID,
		&race.CircuitID,
		&race.Round,
		&race.Name,
		&race.Date,
		&race.Time,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find race %d/%d: %w", key.SeasonID, key.Round, err)
	}

	return &race, nil
}

// InsertRace implements ingest.Store. The generated id is written back into
// the race so callers can key timing facts against it within the same run.
func (s *FactStore) InsertRace(ctx context.Context, race *ingest.Race) error {
	query := `
		INSERT INTO races (season_id, circuit_id, round, name, race_date, race_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.conn.DB().QueryRowContext(ctx, query,
		race.SeasonID,
		race.CircuitID,
		race.Round,
		race.Name,
		race.Date,
		race.Time,
	).Scan(&race.ID)
	if err != nil {
		return fmt.Errorf("failed to insert race %d/%d: %w", race.SeasonID, race.Round, err)
	}

	return nil
}

// UpdateRace implements ingest.Store.
func (s *FactStore) UpdateRace(ctx context.Context, id int64, race *ingest.Race) error {
	query := `
		UPDATE races
		SET circuit_id = $2, name = $3, race_date = $4, race_time = $5
		WHERE id = $1
	`

	result, err := s.conn.DB().ExecContext(ctx, query,
		id,
		race.CircuitID,
		race.Name,
		race.Date,
		race.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to update race %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		s.logger.Warn("race update matched no rows", slog.Int64("race_id", id))
	}

	return nil
}

// QualifyingExists implements ingest.Store.
func (s *FactStore) QualifyingExists(ctx context.Context, key ingest.QualifyingKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM qualifying_results WHERE session_id = $1 AND driver_id = $2
		)
	`

	var exists bool

	err := s.conn.DB().QueryRowContext(ctx, query, key.SessionID, key.DriverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check qualifying result: %w", err)
	}

	return exists, nil
}

// InsertQualifyingResult implements ingest.Store. ON CONFLICT DO NOTHING
// backs the existence check: if another run inserted the row between check
// and insert, the insert degrades to a no-op instead of failing.
func (s *FactStore) InsertQualifyingResult(ctx context.Context, result *ingest.QualifyingResult) error {
	query := `
		INSERT INTO qualifying_results (session_id, driver_id, constructor_id, position, q1_time_ms, q2_time_ms, q3_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, driver_id) DO NOTHING
	`

	_, err := s.conn.DB().ExecContext(ctx, query,
		result.SessionID,
		result.DriverID,
		result.ConstructorID,
		result.Position,
		result.Q1TimeMS,
		result.Q2TimeMS,
		result.Q3TimeMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert qualifying result: %w", err)
	}

	return nil
}

// LapExists implements ingest.Store.
func (s *FactStore) LapExists(ctx context.Context, key ingest.LapKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM laps WHERE race_id = $1 AND driver_id = $2 AND lap_number = $3
		)
	`

	var exists bool

	err := s.conn.DB().QueryRowContext(ctx, query, key.RaceID, key.DriverID, key.LapNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check lap: %w", err)
	}

	return exists, nil
}

// InsertLap implements ingest.Store.
func (s *FactStore) InsertLap(ctx context.Context, lap *ingest.Lap) error {
	query := `
		INSERT INTO laps (race_id, driver_id, lap_number, position, time_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (race_id, driver_id, lap_number) DO NOTHING
	`

	_, err := s.conn.DB().ExecContext(ctx, query,
		lap.RaceID,
		lap.DriverID,
		lap.LapNumber,
		lap.Position,
		lap.TimeMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lap: %w", err)
	}

	return nil
}

// PitStopExists implements ingest.Store.
func (s *FactStore) PitStopExists(ctx context.Context, key ingest.PitStopKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM pit_stops
			WHERE race_id = $1 AND driver_id = $2 AND lap_number = $3 AND stop_number = $4
		)
	`

	var exists bool

	err := s.conn.DB().QueryRowContext(ctx, query,
		key.RaceID,
		key.DriverID,
		key.LapNumber,
		key.StopNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pit stop: %w", err)
	}

	return exists, nil
}

// InsertPitStop implements ingest.Store.
func (s *FactStore) InsertPitStop(ctx context.Context, stop *ingest.PitStop) error {
	query := `
		INSERT INTO pit_stops (race_id, driver_id, lap_number, stop_number, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (race_id, driver_id, lap_number, stop_number) DO NOTHING
	`

	_, err := s.conn.DB().ExecContext(ctx, query,
		stop.RaceID,
		stop.DriverID,
		stop.LapNumber,
		stop.StopNumber,
		stop.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pit stop: %w", err)
	}

	return nil
}
