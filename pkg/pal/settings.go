package pal

// PlacementVersion selects the obstacle handling rules.
type PlacementVersion int

const (
	// PlacementV1 only adds obstacle penalties to candidate costs.
	PlacementV1 PlacementVersion = 1
	// PlacementV2 also discards candidates in hard conflict with an obstacle
	// whose factor outweighs the label's priority.
	PlacementV2 PlacementVersion = 2
)

// Default tunable values.
const (
	DefaultMaxPointCandidates   = 16
	DefaultMaxLineCandidates    = 50
	DefaultMaxPolygonCandidates = 30
	DefaultTabuMinIterations    = 2
	DefaultTabuMaxIterations    = 4
	DefaultPopmusicRadius       = 30
	DefaultEjectionChainDegree  = 50
	DefaultTenure               = 10
	DefaultCandidateListSize    = 0.2
	DefaultPlacementVersion     = PlacementV2
)

// Settings is a snapshot of the engine's tunables. The zero value is not
// valid; start from DefaultSettings.
type Settings struct {
	MaxPointCandidates   int              `toml:"max_point_candidates" json:"max_point_candidates"`
	MaxLineCandidates    int              `toml:"max_line_candidates" json:"max_line_candidates"`
	MaxPolygonCandidates int              `toml:"max_polygon_candidates" json:"max_polygon_candidates"`
	TabuMinIterations    int              `toml:"tabu_min_iterations" json:"tabu_min_iterations"`
	TabuMaxIterations    int              `toml:"tabu_max_iterations" json:"tabu_max_iterations"`
	PopmusicRadius       int              `toml:"popmusic_radius" json:"popmusic_radius"`
	EjectionChainDegree  int              `toml:"ejection_chain_degree" json:"ejection_chain_degree"`
	Tenure               int              `toml:"tenure" json:"tenure"`
	CandidateListSize    float64          `toml:"candidate_list_size" json:"candidate_list_size"`
	ShowPartialLabels    bool             `toml:"show_partial_labels" json:"show_partial_labels"`
	PlacementVersion     PlacementVersion `toml:"placement_version" json:"placement_version"`
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxPointCandidates:   DefaultMaxPointCandidates,
		MaxLineCandidates:    DefaultMaxLineCandidates,
		MaxPolygonCandidates: DefaultMaxPolygonCandidates,
		TabuMinIterations:    DefaultTabuMinIterations,
		TabuMaxIterations:    DefaultTabuMaxIterations,
		PopmusicRadius:       DefaultPopmusicRadius,
		EjectionChainDegree:  DefaultEjectionChainDegree,
		Tenure:               DefaultTenure,
		CandidateListSize:    DefaultCandidateListSize,
		ShowPartialLabels:    true,
		PlacementVersion:     DefaultPlacementVersion,
	}
}

// =============================================================================
// Validated setters
// =============================================================================
//
// Each setter stores its value only when it satisfies the tunable's
// constraint. Invalid values are ignored and the previous value is kept.

// SetMaximumPointCandidates sets the candidate cap for point features (>0).
func (p *Pal) SetMaximumPointCandidates(n int) {
	if n > 0 {
		p.settingsMu.Lock()
		p.settings.MaxPointCandidates = n
		p.settingsMu.Unlock()
	}
}

// SetMaximumLineCandidates sets the candidate cap for line features (>0).
func (p *Pal) SetMaximumLineCandidates(n int) {
	if n > 0 {
		p.settingsMu.Lock()
		p.settings.MaxLineCandidates = n
		p.settingsMu.Unlock()
	}
}

// SetMaximumPolygonCandidates sets the candidate cap for polygon features (>0).
func (p *Pal) SetMaximumPolygonCandidates(n int) {
	if n > 0 {
		p.settingsMu.Lock()
		p.settings.MaxPolygonCandidates = n
		p.settingsMu.Unlock()
	}
}

// SetTabuMinIterations sets the per-feature minimum search iterations (>=0).
func (p *Pal) SetTabuMinIterations(n int) {
	if n >= 0 {
		p.settingsMu.Lock()
		p.settings.TabuMinIterations = n
		p.settingsMu.Unlock()
	}
}

// SetTabuMaxIterations sets the per-feature maximum search iterations (>0).
func (p *Pal) SetTabuMaxIterations(n int) {
	if n > 0 {
		p.settingsMu.Lock()
		p.settings.TabuMaxIterations = n
		p.settingsMu.Unlock()
	}
}

// SetPopmusicRadius sets the sub-problem size of the decomposed search (>0).
func (p *Pal) SetPopmusicRadius(r int) {
	if r > 0 {
		p.settingsMu.Lock()
		p.settings.PopmusicRadius = r
		p.settingsMu.Unlock()
	}
}

// SetEjectionChainDegree sets the maximum length of an ejection chain.
func (p *Pal) SetEjectionChainDegree(d int) {
	p.settingsMu.Lock()
	p.settings.EjectionChainDegree = d
	p.settingsMu.Unlock()
}

// SetTenure sets how many iterations a moved feature stays tabu.
func (p *Pal) SetTenure(t int) {
	p.settingsMu.Lock()
	p.settings.Tenure = t
	p.settingsMu.Unlock()
}

// SetCandidateListSize sets the fraction of features evaluated per iteration.
func (p *Pal) SetCandidateListSize(f float64) {
	p.settingsMu.Lock()
	p.settings.CandidateListSize = f
	p.settingsMu.Unlock()
}

// SetShowPartialLabels chooses whether candidates crossing the map boundary
// are kept.
func (p *Pal) SetShowPartialLabels(show bool) {
	p.settingsMu.Lock()
	p.settings.ShowPartialLabels = show
	p.settingsMu.Unlock()
}

// SetPlacementVersion selects the obstacle handling rules. Unknown versions
// are ignored.
func (p *Pal) SetPlacementVersion(v PlacementVersion) {
	if v != PlacementV1 && v != PlacementV2 {
		return
	}
	p.settingsMu.Lock()
	p.settings.PlacementVersion = v
	p.settingsMu.Unlock()
}

// ApplySettings routes every field of s through its validated setter.
func (p *Pal) ApplySettings(s Settings) {
	p.SetMaximumPointCandidates(s.MaxPointCandidates)
	p.SetMaximumLineCandidates(s.MaxLineCandidates)
	p.SetMaximumPolygonCandidates(s.MaxPolygonCandidates)
	p.SetTabuMinIterations(s.TabuMinIterations)
	p.SetTabuMaxIterations(s.TabuMaxIterations)
	p.SetPopmusicRadius(s.PopmusicRadius)
	p.SetEjectionChainDegree(s.EjectionChainDegree)
	p.SetTenure(s.Tenure)
	p.SetCandidateListSize(s.CandidateListSize)
	p.SetShowPartialLabels(s.ShowPartialLabels)
	p.SetPlacementVersion(s.PlacementVersion)
}

// =============================================================================
// Getters
// =============================================================================

// Settings returns a snapshot of the current tunables.
func (p *Pal) Settings() Settings {
	p.settingsMu.RLock()
	defer p.settingsMu.RUnlock()
	return p.settings
}

// MaximumPointCandidates returns the candidate cap for point features.
func (p *Pal) MaximumPointCandidates() int { return p.Settings().MaxPointCandidates }

// MaximumLineCandidates returns the candidate cap for line features.
func (p *Pal) MaximumLineCandidates() int { return p.Settings().MaxLineCandidates }

// MaximumPolygonCandidates returns the candidate cap for polygon features.
func (p *Pal) MaximumPolygonCandidates() int { return p.Settings().MaxPolygonCandidates }

// TabuMinIterations returns the lower bound on tabu search iterations.
func (p *Pal) TabuMinIterations() int { return p.Settings().TabuMinIterations }

// TabuMaxIterations returns the upper bound on tabu search iterations.
func (p *Pal) TabuMaxIterations() int { return p.Settings().TabuMaxIterations }

// PopmusicRadius returns the number of features per POPMUSIC subproblem.
func (p *Pal) PopmusicRadius() int { return p.Settings().PopmusicRadius }

// EjectionChainDegree returns the maximum length of an ejection chain.
func (p *Pal) EjectionChainDegree() int { return p.Settings().EjectionChainDegree }

// Tenure returns how many iterations a moved feature stays tabu.
func (p *Pal) Tenure() int { return p.Settings().Tenure }

// CandidateListSize returns the fraction of candidates the tabu search
// considers per move.
func (p *Pal) CandidateListSize() float64 { return p.Settings().CandidateListSize }

// ShowPartialLabels reports whether candidates may extend past the boundary.
func (p *Pal) ShowPartialLabels() bool { return p.Settings().ShowPartialLabels }

// PlacementVersion returns the active obstacle handling rules.
func (p *Pal) PlacementVersion() PlacementVersion { return p.Settings().PlacementVersion }
