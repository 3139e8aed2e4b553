// Package jolpica provides a client for the Jolpica/Ergast-style Formula 1
// results API.
//
// Every response is an MRData envelope wrapping a RaceTable with zero or more
// races; which nested arrays are populated depends on the endpoint. Malformed
// or empty envelopes mean "no data", never an error - only the HTTP status
// carries error semantics.
package jolpica

type (
	// envelope is the MRData wrapper every endpoint returns.
	envelope struct {
		MRData mrData `json:"MRData"`
	}

	mrData struct {
		RaceTable raceTable `json:"RaceTable"`
	}

	raceTable struct {
		Races []Race `json:"Races"`
	}

	// Race is one race entry. The scalar fields are populated on every
	// endpoint; QualifyingResults, Laps and PitStops only on theirs.
	Race struct {
		Season            string             `json:"season"`
		Round             string             `json:"round"`
		RaceName          string             `json:"raceName"`
		Date              string             `json:"date"`
		Time              string             `json:"time"`
		Circuit           Circuit            `json:"Circuit"`
		QualifyingResults []QualifyingResult `json:"QualifyingResults"`
		Laps              []Lap              `json:"Laps"`
		PitStops          []PitStop          `json:"PitStops"`
	}

	// Circuit identifies a venue by external key and display name.
	Circuit struct {
		CircuitID   string   `json:"circuitId"`
		CircuitName string   `json:"circuitName"`
		Location    Location `json:"Location"`
	}

	// Location is the circuit's locality and country.
	Location struct {
		Locality string `json:"locality"`
		Country  string `json:"country"`
	}

	// Driver carries every identifier form the API uses for a driver.
	// Code and PermanentNumber are optional upstream.
	Driver struct {
		DriverID        string `json:"driverId"`
		Code            string `json:"code"`
		PermanentNumber string `json:"permanentNumber"`
		GivenName       string `json:"givenName"`
		FamilyName      string `json:"familyName"`
	}

	// Constructor identifies a constructor by its stable external key.
	Constructor struct {
		ConstructorID string `json:"constructorId"`
		Name          string `json:"name"`
	}

	// QualifyingResult is one driver's qualifying classification. Q2 and Q3
	// are empty for drivers eliminated in earlier segments.
	QualifyingResult struct {
		Position    string      `json:"position"`
		Driver      Driver      `json:"Driver"`
		Constructor Constructor `json:"Constructor"`
		Q1          string      `json:"Q1"`
		Q2          string      `json:"Q2"`
		Q3          string      `json:"Q3"`
	}

	// Lap groups the per-driver timings recorded on one lap.
	Lap struct {
		Number  string   `json:"number"`
		Timings []Timing `json:"Timings"`
	}

	// Timing is one driver's time and running position on a lap.
	Timing struct {
		DriverID string `json:"driverId"`
		Position string `json:"position"`
		Time     string `json:"time"`
	}

	// PitStop is one pit stop entry.
	PitStop struct {
		DriverID string `json:"driverId"`
		Stop     string `json:"stop"`
		Lap      string `json:"lap"`
		Duration string `json:"duration"`
	}
)
