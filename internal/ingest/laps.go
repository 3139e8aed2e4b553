package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pitwall-io/pitwall/internal/identity"
	"github.com/pitwall-io/pitwall/internal/jolpica"
)

// LapReconciler ingests per-lap timing. Lap timing is the one dataset the
// upstream only serves in fixed-size pages with no total count, so each race
// runs the paginated fetcher; laps are immutable history and insert-once.
type LapReconciler struct {
	store    Store
	api      ResultsAPI
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewLapReconciler creates a lap reconciler. The resolver must already hold
// the full driver reference set.
func NewLapReconciler(store Store, api ResultsAPI, resolver *identity.Resolver, logger *slog.Logger) *LapReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LapReconciler{store: store, api: api, resolver: resolver, logger: logger}
}

// ReconcileRace fetches every lap page for one stored race and ingests the
// timings in page order, then in-page order. A page-loop error does not
// discard the pages already fetched: whatever arrived is ingested and the
// error is reported through the summary's Failed count by the caller.
func (l *LapReconciler) ReconcileRace(ctx context.Context, seasonYear int, race *Race) (Summary, error) {
	var summary Summary

	year := strconv.Itoa(seasonYear)

	laps, fetchErr := jolpica.FetchAllPages(ctx, l.api.PageSize(), l.logger,
		func(ctx context.Context, offset int) ([]jolpica.Lap, error) {
			return l.api.LapsPage(ctx, year, race.Round, offset)
		})

	if fetchErr != nil && errors.Is(fetchErr, jolpica.ErrNotFound) {
		l.logger.Warn("No lap data upstream yet",
			slog.Int("season", seasonYear),
			slog.Int("round", race.Round))

		fetchErr = nil
	}

	for i := range laps {
		lapNumber, err := strconv.Atoi(laps[i].Number)
		if err != nil {
			l.logger.Warn("Malformed lap number",
				slog.Int64("race_id", race.ID),
				slog.String("lap", laps[i].Number))

			summary.Record(OutcomeSkippedError)

			continue
		}

		for j := range laps[i].Timings {
			summary.Record(l.reconcileTiming(ctx, race, lapNumber, &laps[i].Timings[j]))
		}
	}

	if fetchErr != nil {
		return summary, fmt.Errorf("lap pages aborted for season %d round %d: %w",
			seasonYear, race.Round, fetchErr)
	}

	return summary, nil
}

func (l *LapReconciler) reconcileTiming(ctx context.Context, race *Race, lapNumber int, t *jolpica.Timing) Outcome {
	driverID, ok := l.resolver.ResolveDriverRef(t.DriverID)
	if !ok {
		l.logger.Warn("Unresolved driver for lap timing",
			slog.Int64("race_id", race.ID),
			slog.Int("lap", lapNumber),
			slog.String("driver_ref", t.DriverID))

		return OutcomeSkippedUnresolved
	}

	position, _ := strconv.Atoi(t.Position)

	row := &Lap{
		RaceID:    race.ID,
		DriverID:  driverID,
		LapNumber: lapNumber,
		Position:  position,
		TimeMS:    nullableTime(t.Time),
	}

	key := LapKey{RaceID: race.ID, DriverID: driverID, LapNumber: lapNumber}

	exists, err := l.store.LapExists(ctx, key)
	if err != nil {
		l.logger.Error("Lap existence check failed",
			slog.Int64("race_id", key.RaceID),
			slog.Int64("driver_id", key.DriverID),
			slog.Int("lap", key.LapNumber),
			slog.String("driver_ref", t.DriverID),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	if exists {
		return OutcomeSkippedExisting
	}

	if err := l.store.InsertLap(ctx, row); err != nil {
		l.logger.Error("Lap insert failed",
			slog.Int64("race_id", key.RaceID),
			slog.Int64("driver_id", key.DriverID),
			slog.Int("lap", key.LapNumber),
			slog.String("driver_ref", t.DriverID),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	return OutcomeInserted
}
