package ingest

import (
	"context"

	"github.com/pitwall-io/pitwall/internal/jolpica"
)

// ResultsAPI is the slice of the results service the reconcilers consume.
// *jolpica.Client satisfies it; tests substitute a scripted fake.
type ResultsAPI interface {
	// SeasonRaces returns all races for a season.
	SeasonRaces(ctx context.Context, season string) ([]jolpica.Race, error)

	// Qualifying returns the qualifying classification for one session.
	Qualifying(ctx context.Context, season string, round int) ([]jolpica.QualifyingResult, error)

	// LapsPage returns one page of lap timing for a race.
	LapsPage(ctx context.Context, season string, round, offset int) ([]jolpica.Lap, error)

	// PitStops returns all pit stops for one race.
	PitStops(ctx context.Context, season string, round int) ([]jolpica.PitStop, error)

	// PageSize returns the page size LapsPage serves.
	PageSize() int
}
