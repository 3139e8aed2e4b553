package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pitwall-io/pitwall/internal/identity"
	"github.com/pitwall-io/pitwall/internal/jolpica"
	"github.com/pitwall-io/pitwall/internal/timing"
)

// PitStopReconciler ingests pit stop entries. Like laps, pit stops are
// immutable history and insert-once.
type PitStopReconciler struct {
	store    Store
	api      ResultsAPI
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewPitStopReconciler creates a pit stop reconciler. The resolver must
// already hold the full driver reference set.
func NewPitStopReconciler(store Store, api ResultsAPI, resolver *identity.Resolver, logger *slog.Logger) *PitStopReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &PitStopReconciler{store: store, api: api, resolver: resolver, logger: logger}
}

// ReconcileRace fetches and ingests all pit stops for one stored race.
func (p *PitStopReconciler) ReconcileRace(ctx context.Context, seasonYear int, race *Race) (Summary, error) {
	var summary Summary

	stops, err := p.api.PitStops(ctx, strconv.Itoa(seasonYear), race.Round)
	if err != nil {
		if errors.Is(err, jolpica.ErrNotFound) {
			p.logger.Warn("No pit stop data upstream yet",
				slog.Int("season", seasonYear),
				slog.Int("round", race.Round))

			return summary, nil
		}

		return summary, fmt.Errorf("failed to fetch pit stops for season %d round %d: %w",
			seasonYear, race.Round, err)
	}

	for i := range stops {
		summary.Record(p.reconcileStop(ctx, race, &stops[i]))
	}

	return summary, nil
}

func (p *PitStopReconciler) reconcileStop(ctx context.Context, race *Race, stop *jolpica.PitStop) Outcome {
	driverID, ok := p.resolver.ResolveDriverRef(stop.DriverID)
	if !ok {
		p.logger.Warn("Unresolved driver for pit stop",
			slog.Int64("race_id", race.ID),
			slog.String("driver_ref", stop.DriverID))

		return OutcomeSkippedUnresolved
	}

	lapNumber, err := strconv.Atoi(stop.Lap)
	if err != nil {
		p.logger.Warn("Malformed pit stop lap",
			slog.Int64("race_id", race.ID),
			slog.String("driver_ref", stop.DriverID),
			slog.String("lap", stop.Lap))

		return OutcomeSkippedError
	}

	stopNumber, err := strconv.Atoi(stop.Stop)
	if err != nil {
		p.logger.Warn("Malformed pit stop number",
			slog.Int64("race_id", race.ID),
			slog.String("driver_ref", stop.DriverID),
			slog.String("stop", stop.Stop))

		return OutcomeSkippedError
	}

	var duration sql.NullInt64
	if ms, ok := timing.ParseStopDuration(stop.Duration); ok {
		duration = sql.NullInt64{Int64: ms, Valid: true}
	}

	row := &PitStop{
		RaceID:     race.ID,
		DriverID:   driverID,
		LapNumber:  lapNumber,
		StopNumber: stopNumber,
		DurationMS: duration,
	}

	key := PitStopKey{RaceID: race.ID, DriverID: driverID, LapNumber: lapNumber, StopNumber: stopNumber}

	exists, err := p.store.PitStopExists(ctx, key)
	if err != nil {
		p.logger.Error("Pit stop existence check failed",
			slog.Int64("race_id", key.RaceID),
			slog.Int64("driver_id", key.DriverID),
			slog.Int("lap", key.LapNumber),
			slog.Int("stop", key.StopNumber),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	if exists {
		return OutcomeSkippedExisting
	}

	if err := p.store.InsertPitStop(ctx, row); err != nil {
		p.logger.Error("Pit stop insert failed",
			slog.Int64("race_id", key.RaceID),
			slog.Int64("driver_id", key.DriverID),
			slog.Int("lap", key.LapNumber),
			slog.Int("stop", key.StopNumber),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	return OutcomeInserted
}
