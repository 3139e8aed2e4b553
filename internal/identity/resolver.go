package identity

import (
	"log/slog"
	"strconv"
	"strings"
)

type (
	// Resolver maps external identifiers to internal primary keys.
	// Thread-safe for concurrent lookups (immutable after construction);
	// registration methods are not safe for concurrent use.
	//
	// Driver name lookup is multi-variant: for each registered driver the
	// candidate keys {first_last, firstlast, last, first} are inserted in
	// that preference order, and a key is only taken by the first driver to
	// claim it. A bare surname shared by two drivers therefore resolves to
	// whichever was registered first instead of being silently overwritten
	// by the second registrant.
	Resolver struct {
		driverByKey    map[string]int64
		driverByCode   map[string]int64
		driverByNumber map[int]int64
		constructors   map[string]int64
		circuitByName  map[string]int64
		circuits       []circuitEntry
		aliases        *Config
	}

	circuitEntry struct {
		id   int64
		name string // normalized
	}

	// ResolverOption configures optional Resolver behavior.
	ResolverOption func(*Resolver)
)

// WithAliases sets operator-maintained alias overrides. An alias rewrites an
// external identifier before any heuristic lookup runs, letting operators
// patch mapping gaps without a code change.
func WithAliases(cfg *Config) ResolverOption {
	return func(r *Resolver) {
		r.aliases = cfg
	}
}

// NewResolver creates an empty resolver. Callers register the full reference
// sets once per ingestion run; the reference tables are small and the jobs
// are periodic batches, so there is no per-item store access.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		driverByKey:    make(map[string]int64),
		driverByCode:   make(map[string]int64),
		driverByNumber: make(map[int]int64),
		constructors:   make(map[string]int64),
		circuitByName:  make(map[string]int64),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AddDriver registers a driver under its name-variant keys, short code, and
// permanent number. Name variants follow first-registration-wins; a later
// driver never displaces an earlier one from a shared key.
func (r *Resolver) AddDriver(id int64, firstName, lastName, code string, permanentNumber int) {
	first := Normalize(firstName)
	last := Normalize(lastName)

	// Ordered candidate list keeps the tie-break rule explicit: the more
	// specific full-name keys claim their slots before bare names do.
	candidates := []string{
		first + "_" + last,
		first + last,
		last,
		first,
	}

	for _, key := range candidates {
		if key == "" || key == "_" {
			continue
		}

		if _, taken := r.driverByKey[key]; !taken {
			r.driverByKey[key] = id
		}
	}

	if code != "" {
		r.driverByCode[strings.ToUpper(code)] = id
	}

	if permanentNumber > 0 {
		r.driverByNumber[permanentNumber] = id
	}
}

// AddConstructor registers a constructor under its external key.
func (r *Resolver) AddConstructor(id int64, externalKey string) {
	if externalKey == "" {
		return
	}

	r.constructors[externalKey] = id
}

// AddCircuit registers a circuit under its name.
func (r *Resolver) AddCircuit(id int64, name string) {
	key := Normalize(name)
	if key == "" {
		return
	}

	if _, taken := r.circuitByName[key]; !taken {
		r.circuitByName[key] = id
	}

	r.circuits = append(r.circuits, circuitEntry{id: id, name: key})
}

// ResolveDriverRef resolves a free-text external driver ref ("max_verstappen").
//
// Lookup order: exact normalized key, key with underscores stripped, last
// underscore-delimited token. First hit wins.
func (r *Resolver) ResolveDriverRef(ref string) (int64, bool) {
	key := Normalize(r.aliasDriver(ref))
	if key == "" {
		return 0, false
	}

	if id, ok := r.driverByKey[key]; ok {
		return id, true
	}

	if id, ok := r.driverByKey[strings.ReplaceAll(key, "_", "")]; ok {
		return id, true
	}

	if idx := strings.LastIndex(key, "_"); idx >= 0 {
		if id, ok := r.driverByKey[key[idx+1:]]; ok {
			return id, true
		}
	}

	return 0, false
}

// ResolveDriver resolves a driver from the identifier set a qualifying entry
// carries: short code, permanent number, then free-text ref, in that order.
// Any of the three may be empty.
func (r *Resolver) ResolveDriver(ref, code, permanentNumber string) (int64, bool) {
	if code != "" {
		if id, ok := r.driverByCode[strings.ToUpper(code)]; ok {
			return id, true
		}
	}

	if permanentNumber != "" {
		if num, err := strconv.Atoi(permanentNumber); err == nil {
			if id, ok := r.driverByNumber[num]; ok {
				return id, true
			}
		}
	}

	return r.ResolveDriverRef(ref)
}

// ResolveConstructor resolves an external constructor key ("red_bull").
func (r *Resolver) ResolveConstructor(externalKey string) (int64, bool) {
	id, ok := r.constructors[r.aliasConstructor(externalKey)]

	return id, ok
}

// ResolveCircuit resolves a circuit from its external key and display name.
//
// An exact normalized-name match is preferred; failing that, a circuit whose
// local name contains the external key matches (the upstream key "monza" vs
// the local name "Autodromo Nazionale di Monza").
func (r *Resolver) ResolveCircuit(externalKey, name string) (int64, bool) {
	if alias := r.aliasCircuit(externalKey); alias != "" {
		if id, ok := r.circuitByName[Normalize(alias)]; ok {
			return id, true
		}
	}

	if id, ok := r.circuitByName[Normalize(name)]; ok {
		return id, true
	}

	fragment := Normalize(externalKey)
	if fragment == "" {
		return 0, false
	}

	for _, c := range r.circuits {
		if strings.Contains(c.name, fragment) {
			return c.id, true
		}
	}

	return 0, false
}

// DriverKeyCount returns the number of registered driver name-variant keys.
func (r *Resolver) DriverKeyCount() int {
	return len(r.driverByKey)
}

func (r *Resolver) aliasDriver(ref string) string {
	if r.aliases == nil {
		return ref
	}

	if canonical, ok := r.aliases.DriverAliases[ref]; ok {
		slog.Debug("Applied driver alias",
			slog.String("alias", ref),
			slog.String("canonical", canonical))

		return canonical
	}

	return ref
}

func (r *Resolver) aliasConstructor(key string) string {
	if r.aliases == nil {
		return key
	}

	if canonical, ok := r.aliases.ConstructorAliases[key]; ok {
		return canonical
	}

	return key
}

func (r *Resolver) aliasCircuit(key string) string {
	if r.aliases == nil {
		return ""
	}

	return r.aliases.CircuitAliases[key]
}
