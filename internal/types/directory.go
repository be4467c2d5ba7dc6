package types

type (
	// SubDirParams contains parameters for listing subdirectories.
	SubDirParams struct {
		Dirs            []string `json:"dirs"`
		Absolute        bool     `json:"absolute,omitempty"`
		IncludeFiles    bool     `json:"includeFiles,omitempty"`
		CollapseOrphans bool     `json:"collapseOrphans,omitempty"`
	}

	// PathFilterConfig contains configuration for the path filter.
	PathFilterConfig struct {
		IgnoredPatterns []string `json:"ignoredPatterns"`
	}
)
