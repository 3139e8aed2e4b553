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

// QualifyingReconciler ingests qualifying classifications. Results are
// immutable history: an existing (session, driver) key is proof the session
// was already ingested and the item is skipped, never overwritten.
type QualifyingReconciler struct {
	store    Store
	api      ResultsAPI
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewQualifyingReconciler creates a qualifying reconciler. The resolver must
// already hold the full driver and constructor reference sets.
func NewQualifyingReconciler(store Store, api ResultsAPI, resolver *identity.Resolver, logger *slog.Logger) *QualifyingReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &QualifyingReconciler{store: store, api: api, resolver: resolver, logger: logger}
}

// ReconcileRace fetches and ingests the qualifying classification for one
// stored race. A 404 means the session has not run yet and is not an error.
func (q *QualifyingReconciler) ReconcileRace(ctx context.Context, seasonYear int, race *Race) (Summary, error) {
	var summary Summary

	items, err := q.api.Qualifying(ctx, strconv.Itoa(seasonYear), race.Round)
	if err != nil {
		if errors.Is(err, jolpica.ErrNotFound) {
			q.logger.Warn("No qualifying results upstream yet",
				slog.Int("season", seasonYear),
				slog.Int("round", race.Round))

			return summary, nil
		}

		return summary, fmt.Errorf("failed to fetch qualifying for season %d round %d: %w",
			seasonYear, race.Round, err)
	}

	for i := range items {
		summary.Record(q.reconcileItem(ctx, race, &items[i]))
	}

	return summary, nil
}

func (q *QualifyingReconciler) reconcileItem(ctx context.Context, race *Race, item *jolpica.QualifyingResult) Outcome {
	driverID, ok := q.resolver.ResolveDriver(item.Driver.DriverID, item.Driver.Code, item.Driver.PermanentNumber)
	if !ok {
		q.logger.Warn("Unresolved driver for qualifying result",
			slog.Int64("session_id", race.ID),
			slog.String("driver_ref", item.Driver.DriverID),
			slog.String("driver_code", item.Driver.Code))

		return OutcomeSkippedUnresolved
	}

	constructorID, ok := q.resolver.ResolveConstructor(item.Constructor.ConstructorID)
	if !ok {
		q.logger.Warn("Unresolved constructor for qualifying result",
			slog.Int64("session_id", race.ID),
			slog.String("constructor_key", item.Constructor.ConstructorID))

		return OutcomeSkippedUnresolved
	}

	position, err := strconv.Atoi(item.Position)
	if err != nil {
		q.logger.Warn("Malformed qualifying position",
			slog.Int64("session_id", race.ID),
			slog.String("driver_ref", item.Driver.DriverID),
			slog.String("position", item.Position))

		return OutcomeSkippedError
	}

	row := &QualifyingResult{
		SessionID:     race.ID,
		DriverID:      driverID,
		ConstructorID: constructorID,
		Position:      position,
		Q1TimeMS:      nullableTime(item.Q1),
		Q2TimeMS:      nullableTime(item.Q2),
		Q3TimeMS:      nullableTime(item.Q3),
	}

	key := QualifyingKey{SessionID: race.ID, DriverID: driverID}

	exists, err := q.store.QualifyingExists(ctx, key)
	if err != nil {
		q.logger.Error("Qualifying existence check failed",
			slog.Int64("session_id", key.SessionID),
			slog.Int64("driver_id", key.DriverID),
			slog.String("driver_ref", item.Driver.DriverID),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	if exists {
		return OutcomeSkippedExisting
	}

	if err := q.store.InsertQualifyingResult(ctx, row); err != nil {
		q.logger.Error("Qualifying insert failed",
			slog.Int64("session_id", key.SessionID),
			slog.Int64("driver_id", key.DriverID),
			slog.String("driver_ref", item.Driver.DriverID),
			slog.String("error", err.Error()))

		return OutcomeSkippedError
	}

	return OutcomeInserted
}

// nullableTime maps a time string to a nullable millisecond value; malformed
// or absent source times become NULL, never a batch failure.
func nullableTime(value string) sql.NullInt64 {
	ms, ok := timing.ParseLapTime(value)
	if !ok {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: ms, Valid: true}
}
