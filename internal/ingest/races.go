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

// defaultRaceTime fills the time column when the upstream omits a start time
// (common for historical seasons).
const defaultRaceTime = "00:00:00Z"

// RaceReconciler converges stored races for one season onto the upstream
// race list. Races are the only fact updated in place: calendars shift, race
// names change sponsors, and the row must track the source.
type RaceReconciler struct {
	store    Store
	api      ResultsAPI
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewRaceReconciler creates a race reconciler. The resolver must already
// hold the full circuit reference set.
func NewRaceReconciler(store Store, api ResultsAPI, resolver *identity.Resolver, logger *slog.Logger) *RaceReconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RaceReconciler{store: store, api: api, resolver: resolver, logger: logger}
}

// ReconcileSeason fetches the upstream race list for one season and upserts
// each race. A race that fails (unresolvable circuit, malformed round, store
// error) is logged and counted; it never blocks the rest of the season.
func (r *RaceReconciler) ReconcileSeason(ctx context.Context, season Season) (Summary, error) {
	var summary Summary

	year := strconv.Itoa(season.Year)

	apiRaces, err := r.api.SeasonRaces(ctx, year)
	if err != nil {
		if errors.Is(err, jolpica.ErrNotFound) {
			r.logger.Warn("No races upstream for season",
				slog.Int("season", season.Year))

			return summary, nil
		}

		return summary, fmt.Errorf("failed to fetch races for season %d: %w", season.Year, err)
	}

	if len(apiRaces) == 0 {
		r.logger.Warn("Empty race list for season", slog.Int("season", season.Year))

		return summary, nil
	}

	for i := range apiRaces {
		outcome, err := r.reconcileRace(ctx, season, &apiRaces[i])
		if err != nil {
			summary.Failed++

			r.logger.Error("Failed to process race",
				slog.Int("season", season.Year),
				slog.String("round", apiRaces[i].Round),
				slog.String("race", apiRaces[i].RaceName),
				slog.String("error", err.Error()))

			continue
		}

		summary.Record(outcome)
	}

	return summary, nil
}

// reconcileRace maps one upstream race to a row and upserts it by natural key.
func (r *RaceReconciler) reconcileRace(ctx context.Context, season Season, apiRace *jolpica.Race) (Outcome, error) {
	round, err := strconv.Atoi(apiRace.Round)
	if err != nil {
		return OutcomeSkippedError, fmt.Errorf("malformed round %q: %w", apiRace.Round, err)
	}

	circuitID, ok := r.resolver.ResolveCircuit(apiRace.Circuit.CircuitID, apiRace.Circuit.CircuitName)
	if !ok {
		return OutcomeSkippedUnresolved, fmt.Errorf("%w: key=%q name=%q",
			ErrCircuitUnresolved, apiRace.Circuit.CircuitID, apiRace.Circuit.CircuitName)
	}

	row := &Race{
		SeasonID:  season.ID,
		CircuitID: circuitID,
		Round:     round,
		Name:      apiRace.RaceName,
		Date:      apiRace.Date,
		Time:      apiRace.Time,
	}
	if row.Time == "" {
		row.Time = defaultRaceTime
	}

	key := RaceKey{SeasonID: season.ID, Round: round}

	existing, err := r.store.FindRace(ctx, key)
	if err != nil {
		return OutcomeSkippedError, fmt.Errorf("existence check failed for season %d round %d: %w",
			season.Year, round, err)
	}

	if existing == nil {
		if err := r.store.InsertRace(ctx, row); err != nil {
			return OutcomeSkippedError, fmt.Errorf("insert failed for season %d round %d: %w",
				season.Year, round, err)
		}

		r.logger.Info("Created race",
			slog.Int("season", season.Year),
			slog.Int("round", round),
			slog.String("race", row.Name))

		return OutcomeInserted, nil
	}

	if raceFieldsEqual(existing, row) {
		return OutcomeUnchanged, nil
	}

	if err := r.store.UpdateRace(ctx, existing.ID, row); err != nil {
		return OutcomeSkippedError, fmt.Errorf("update failed for season %d round %d: %w",
			season.Year, round, err)
	}

	r.logger.Info("Updated race",
		slog.Int("season", season.Year),
		slog.Int("round", round),
		slog.String("race", row.Name))

	return OutcomeUpdated, nil
}

// raceFieldsEqual compares the source-owned fields; ID is generated and the
// natural key already matched.
func raceFieldsEqual(a, b *Race) bool {
	return a.CircuitID == b.CircuitID &&
		a.Name == b.Name &&
		a.Date == b.Date &&
		a.Time == b.Time
}
