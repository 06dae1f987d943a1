// Package enrich fans each harvested entity out to the external lookup
// sources, validates the matches, and merges the results.
package enrich

import (
	"github.com/caldera-data/dirscout/internal/appstore"
	"github.com/caldera-data/dirscout/internal/directory"
)

// Record is the merged view of one entity after enrichment: the directory
// fields, at most one validated candidate per store, and the website
// feature signal. Records are never mutated after construction.
type Record struct {
	Entity   directory.Entity
	AppleApp *appstore.Candidate
	PlayApp  *appstore.Candidate
	HasLogin bool
}

// Apps returns the accepted candidates in a stable order (Apple, then Play).
func (r Record) Apps() []appstore.Candidate {
	var apps []appstore.Candidate
	if r.AppleApp != nil {
		apps = append(apps, *r.AppleApp)
	}
	if r.PlayApp != nil {
		apps = append(apps, *r.PlayApp)
	}
	return apps
}

// HasApp reports whether either store produced a validated match.
func (r Record) HasApp() bool {
	return r.AppleApp != nil || r.PlayApp != nil
}
