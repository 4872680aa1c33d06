// Package provider defines the adapter contract shared by the Spotify,
// Apple Music and YouTube catalog clients. Adapters only look things up;
// they never touch the data model.
package provider

import (
	"context"
	"errors"

	"tracklink-go-srv/internal/models"
)

var (
	// ErrDisabled means the adapter has no credentials (or, for YouTube,
	// the track lacks the title+artist needed to search). It is "no data",
	// not a failure.
	ErrDisabled = errors.New("provider disabled")

	// ErrNotFound means the upstream answered but the recording is not in
	// its catalog.
	ErrNotFound = errors.New("not found on provider")
)

// Result is the normalized outcome of one successful provider lookup: the
// provider's stable id, a catalog snapshot, and whatever live counters the
// API actually surfaces.
type Result struct {
	Provider models.Provider

	ID          string
	Name        string // track / video display name
	Secondary   string // album (Spotify, Apple) or channel (YouTube)
	SecondaryID string // Apple album id
	ExternalURL string

	// Spotify. Streams is always 0: the public API does not expose stream
	// counts, the zero is a documented sentinel rather than a claim.
	Popularity int
	Streams    int64
	Followers  int64

	// Apple. Rank stays nil: the catalog endpoint has no chart rank.
	Rank  *int
	Plays int64

	// YouTube.
	Views    int64
	Likes    int64
	Comments int64
}

// Adapter is the single-operation contract every provider client fulfils.
type Adapter interface {
	Name() models.Provider

	// Lookup resolves a track by ISRC (Spotify, Apple) or title+artist
	// (YouTube). Returns ErrDisabled, ErrNotFound, or a transport/API error.
	Lookup(ctx context.Context, track models.Track) (*Result, error)

	// LookupByID fetches a catalog record by the provider's own id. This is
	// the refresh path; it never searches.
	LookupByID(ctx context.Context, id string) (*Result, error)
}
