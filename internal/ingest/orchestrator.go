package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pitwall-io/pitwall/internal/identity"
)

// defaultTimingSeasonCount bounds the timing jobs when no explicit season
// list is configured.
const defaultTimingSeasonCount = 2

type (
	// Service orchestrates the ingestion jobs in dependency order: seasons
	// and circuits must exist before races are ingested, and races before
	// qualifying, laps, or pit stops.
	//
	// Each job is a sequential batch: seasons one at a time, races within a
	// season one at a time, pages within a race one at a time. The upstream
	// rate limit is shared, so parallel requests would only raise the odds
	// of a lockout without shortening wall-clock time. Cancellation is
	// checked between races; a cancelled run returns its partial summary
	// together with the context error.
	Service struct {
		store         Store
		api           ResultsAPI
		aliases       *identity.Config
		timingSeasons []int
		logger        *slog.Logger
	}

	// ServiceOption configures optional Service behavior.
	ServiceOption func(*Service)
)

// WithAliases sets identifier alias overrides for the resolvers.
func WithAliases(cfg *identity.Config) ServiceOption {
	return func(s *Service) {
		s.aliases = cfg
	}
}

// WithTimingSeasons restricts the qualifying/laps/pitstops jobs to the given
// season years. Empty keeps the default (two most recent stored seasons).
func WithTimingSeasons(years []int) ServiceOption {
	return func(s *Service) {
		s.timingSeasons = years
	}
}

// NewService creates the ingestion orchestrator.
func NewService(store Store, api ResultsAPI, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{store: store, api: api, logger: logger}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IngestRaces reconciles the race calendar for every stored season.
//
// The run aborts only when the store holds no seasons or no circuits at all;
// any per-season or per-race failure is logged, counted, and stepped over.
func (s *Service) IngestRaces(ctx context.Context) (Summary, error) {
	var summary Summary

	seasons, err := s.store.ListSeasons(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list seasons: %w", err)
	}

	if len(seasons) == 0 {
		return summary, ErrNoSeasons
	}

	circuits, err := s.store.ListCircuits(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list circuits: %w", err)
	}

	if len(circuits) == 0 {
		return summary, ErrNoCircuits
	}

	resolver := s.newResolver()
	for _, c := range circuits {
		resolver.AddCircuit(c.ID, c.Name)
	}

	reconciler := NewRaceReconciler(s.store, s.api, resolver, s.logger)

	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		s.logger.Info("Ingesting races for season", slog.Int("season", season.Year))

		seasonSummary, err := reconciler.ReconcileSeason(ctx, season)
		summary.Merge(seasonSummary)

		if err != nil {
			summary.Failed++

			s.logger.Error("Season race ingestion failed",
				slog.Int("season", season.Year),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("Race ingestion complete",
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("failed", summary.Failed))

	return summary, nil
}

// IngestQualifying reconciles qualifying results for the timing seasons.
func (s *Service) IngestQualifying(ctx context.Context) (Summary, error) {
	resolver, err := s.timingResolver(ctx, true)
	if err != nil {
		return Summary{}, err
	}

	reconciler := NewQualifyingReconciler(s.store, s.api, resolver, s.logger)

	return s.runTimingJob(ctx, "qualifying", reconciler.ReconcileRace)
}

// IngestLaps reconciles lap timing for the timing seasons.
func (s *Service) IngestLaps(ctx context.Context) (Summary, error) {
	resolver, err := s.timingResolver(ctx, false)
	if err != nil {
		return Summary{}, err
	}

	reconciler := NewLapReconciler(s.store, s.api, resolver, s.logger)

	return s.runTimingJob(ctx, "laps", reconciler.ReconcileRace)
}

// IngestPitStops reconciles pit stops for the timing seasons.
func (s *Service) IngestPitStops(ctx context.Context) (Summary, error) {
	resolver, err := s.timingResolver(ctx, false)
	if err != nil {
		return Summary{}, err
	}

	reconciler := NewPitStopReconciler(s.store, s.api, resolver, s.logger)

	return s.runTimingJob(ctx, "pitstops", reconciler.ReconcileRace)
}

// raceJobFunc reconciles one dataset for one stored race.
type raceJobFunc func(ctx context.Context, seasonYear int, race *Race) (Summary, error)

// runTimingJob drives a per-race reconciler across every stored race of the
// timing seasons. One bad race never blocks the remainder of a season.
func (s *Service) runTimingJob(ctx context.Context, job string, reconcile raceJobFunc) (Summary, error) {
	var summary Summary

	seasons, err := s.selectTimingSeasons(ctx)
	if err != nil {
		return summary, err
	}

	for _, season := range seasons {
		s.logger.Info("Starting timing job for season",
			slog.String("job", job),
			slog.Int("season", season.Year))

		races, err := s.store.ListRacesBySeason(ctx, season.ID)
		if err != nil {
			summary.Failed++

			s.logger.Error("Failed to list races for season",
				slog.String("job", job),
				slog.Int("season", season.Year),
				slog.String("error", err.Error()))

			continue
		}

		for i := range races {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			raceSummary, err := reconcile(ctx, season.Year, &races[i])
			summary.Merge(raceSummary)

			if err != nil {
				summary.Failed++

				s.logger.Error("Race reconciliation failed",
					slog.String("job", job),
					slog.Int("season", season.Year),
					slog.Int("round", races[i].Round),
					slog.String("error", err.Error()))
			}
		}

		s.logger.Info("Finished timing job for season",
			slog.String("job", job),
			slog.Int("season", season.Year))
	}

	s.logger.Info("Timing job complete",
		slog.String("job", job),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))

	return summary, nil
}

// selectTimingSeasons resolves the configured season years against the
// stored seasons, defaulting to the two most recent.
func (s *Service) selectTimingSeasons(ctx context.Context) ([]Season, error) {
	seasons, err := s.store.ListSeasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	if len(seasons) == 0 {
		return nil, ErrNoSeasons
	}

	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].Year > seasons[j].Year
	})

	if len(s.timingSeasons) == 0 {
		if len(seasons) > defaultTimingSeasonCount {
			seasons = seasons[:defaultTimingSeasonCount]
		}

		return seasons, nil
	}

	byYear := make(map[int]Season, len(seasons))
	for _, season := range seasons {
		byYear[season.Year] = season
	}

	selected := make([]Season, 0, len(s.timingSeasons))

	for _, year := range s.timingSeasons {
		season, ok := byYear[year]
		if !ok {
			s.logger.Warn("Configured timing season not present in store",
				slog.Int("season", year))

			continue
		}

		selected = append(selected, season)
	}

	return selected, nil
}

// timingResolver builds the driver (and optionally constructor) resolution
// indices from the reference tables, once per run.
func (s *Service) timingResolver(ctx context.Context, withConstructors bool) (*identity.Resolver, error) {
	resolver := s.newResolver()

	drivers, err := s.store.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	for _, d := range drivers {
		resolver.AddDriver(d.ID, d.FirstName, d.LastName, d.Code, d.PermanentNumber)
	}

	if withConstructors {
		constructors, err := s.store.ListConstructors(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list constructors: %w", err)
		}

		for _, c := range constructors {
			resolver.AddConstructor(c.ID, c.ExternalKey)
		}
	}

	return resolver, nil
}

func (s *Service) newResolver() *identity.Resolver {
	if s.aliases != nil {
		return identity.NewResolver(identity.WithAliases(s.aliases))
	}

	return identity.NewResolver()
}
