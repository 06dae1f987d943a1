// Package appstore provides the external lookup clients and the match
// validation rule used to tie store listings back to directory entities.
package appstore

import (
	"context"
	"errors"
)

// Source tags which backend produced a candidate.
type Source string

// Known lookup sources.
const (
	SourceApple Source = "apple_app_store"
	SourcePlay  Source = "google_play"
)

// ErrLookup marks a failed remote lookup. Callers treat it as "no data from
// this source", never as a reason to abort the entity.
var ErrLookup = errors.New("external lookup failed")

// Candidate is one unvalidated store listing returned by a lookup. It is
// transient: produced per call, never persisted directly.
type Candidate struct {
	Source         Source  `json:"source"`
	ID             string  `json:"id,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Genre          string  `json:"genre,omitempty"`
	Installs       string  `json:"installs,omitempty"`
	Score          float64 `json:"score,omitempty"`
	Ratings        int64   `json:"ratings,omitempty"`
	Free           bool    `json:"free"`
	Developer      string  `json:"developer,omitempty"`
	DeveloperEmail string  `json:"developer_email,omitempty"`
	URL            string  `json:"url,omitempty"`
}

// Client is the lookup contract both stores satisfy. Search returns
// candidates in the source's own relevance order; Details completes a
// candidate whose search result was not already detail-complete.
type Client interface {
	Source() Source
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	Details(ctx context.Context, c Candidate) (Candidate, error)
}
