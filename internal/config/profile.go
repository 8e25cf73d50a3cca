package config

// Profile holds a named evaluation preset. Presets let a project pin its
// evaluation settings in version control so every run uses the same
// matching rules.
type Profile struct {
	// IgnoreLabel disables label-aware matching for this preset.
	IgnoreLabel *bool `yaml:"ignoreLabel,omitempty"`

	// PartialMatchWeight overrides the partial match weight.
	// If nil, the global default is used.
	PartialMatchWeight *float64 `yaml:"partialMatchWeight,omitempty"`

	// Concurrency overrides the number of parallel page evaluations.
	// If zero, the global default is used.
	Concurrency int `yaml:"concurrency,omitempty"`

	// RunLabel tags persisted runs made with this preset.
	RunLabel string `yaml:"runLabel,omitempty"`
}

// File represents the structure of the .poemeval configuration file.
type File struct {
	// Profiles maps preset names to their evaluation settings.
	Profiles map[string]Profile `yaml:"profiles,omitempty"`

	// Defaults contains the preset applied when no profile is named
	// and the base every named profile is merged onto.
	Defaults Profile `yaml:"defaults,omitempty"`
}

// GetProfile returns the preset for the given name merged onto the file's
// defaults. An empty or unknown name returns the defaults alone.
func (cf *File) GetProfile(name string) Profile {
	result := cf.Defaults

	if p, ok := cf.Profiles[name]; ok {
		if p.IgnoreLabel != nil {
			result.IgnoreLabel = p.IgnoreLabel
		}
		if p.PartialMatchWeight != nil {
			result.PartialMatchWeight = p.PartialMatchWeight
		}
		if p.Concurrency != 0 {
			result.Concurrency = p.Concurrency
		}
		if p.RunLabel != "" {
			result.RunLabel = p.RunLabel
		}
	}

	return result
}

// Apply copies the preset's settings onto the config. Only fields the
// preset actually sets are copied, so CLI flags applied afterwards still
// win over the file.
func (c *Config) Apply(p Profile) {
	if p.IgnoreLabel != nil {
		c.IgnoreLabel = *p.IgnoreLabel
	}
	if p.PartialMatchWeight != nil {
		c.PartialMatchWeight = *p.PartialMatchWeight
	}
	if p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if p.RunLabel != "" {
		c.RunLabel = p.RunLabel
	}
}
