package types

type (
	// SuctionParams contains parameters for flattening a directory tree.
	SuctionParams struct {
		Dir         string   `json:"dir"`
		ExcludeDirs []string `json:"excludeDirs,omitempty"`
		// DeleteExcluded removes excluded top-level directories too, after the
		// move phase. Off by default.
		DeleteExcluded bool `json:"deleteExcluded,omitempty"`
		DryRun         bool `json:"dryRun,omitempty"`
	}

	// Move records a single file relocation.
	Move struct {
		From string `json:"from"`
		To   string `json:"to"`
	}

	// SuctionResult contains the result of a suction run.
	SuctionResult struct {
		Dir     string   `json:"dir"`
		Moved   []Move   `json:"moved"`
		Removed []string `json:"removed"`
		Skipped []string `json:"skipped,omitempty"`
		DryRun  bool     `json:"dryRun,omitempty"`
	}
)
