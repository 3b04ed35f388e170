// Package feed discovers article candidates from the configured sources.
package feed

import "time"

// Candidate is an article discovered in the current run. It is mutated in
// place as it moves through the pipeline: the title may be rewritten and
// content and image attached before persistence.
type Candidate struct {
	Title      string
	URL        string
	Domain     string
	Discovered *time.Time // nil when the source exposed no usable timestamp

	Content  string
	ImageURL string
}
