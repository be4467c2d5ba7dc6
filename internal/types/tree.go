package types

type (
	// TreeParams contains parameters for indexing directory trees.
	TreeParams struct {
		Dirs       []string `json:"dirs"`
		OutFile    string   `json:"outFile,omitempty"`
		StartIndex int      `json:"startIndex"`
	}

	// TreeRow is one entry of an indexed directory tree.
	TreeRow struct {
		Index string `json:"fileIndex"`
		Name  string `json:"fileName"`
		Path  string `json:"path"`
		Type  string `json:"type"`
	}
)

// TreeResult contains the result of indexing one or more roots. Rows is
// populated only when no output file was requested.
type TreeResult struct {
	Rows    []TreeRow `json:"rows,omitempty"`
	OutFile string    `json:"outFile,omitempty"`
	Roots   int       `json:"roots"`
	Entries int       `json:"entries"`
}
