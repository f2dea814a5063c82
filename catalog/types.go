/*
Package catalog holds the watchable content model: standalone
documentaries, series, and episodes.

PURPOSE:
  The accrual engine never cares what a unit IS - it only needs the
  unit's fixed point value, runtime, and genres at the moment a user
  finishes watching it. This package owns those lookups and the browse
  surface the web layer renders from.

KEY CONCEPTS:
  - Content:  a standalone watchable item (documentary, film)
  - Series:   a container of episodes; carries the genres
  - Episode:  a watchable item inside a series
  - UnitRef:  points at exactly one Content or one Episode
  - Unit:     the resolved award view (points, duration, genres)

SEE ALSO:
  - catalog.go: Service (browse ops) and the PointValuer collaborator
  - store/sqlite/catalog.go: persistence
*/
package catalog

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContentID int64
type SeriesID int64
type EpisodeID int64

// =============================================================================
// UNIT REFERENCE - exactly one of content or episode
// =============================================================================

// ErrInvalidUnitRef is returned when a reference names both a content
// item and an episode, or neither.
var ErrInvalidUnitRef = errors.New("unit ref must name exactly one of content or episode")

// UnitRef identifies a single watchable unit. A zero ID means "not set";
// exactly one of the two fields must be set.
type UnitRef struct {
	ContentID ContentID
	EpisodeID EpisodeID
}

func ContentRef(id ContentID) UnitRef { return UnitRef{ContentID: id} }
func EpisodeRef(id EpisodeID) UnitRef { return UnitRef{EpisodeID: id} }

func (r UnitRef) IsContent() bool { return r.ContentID != 0 && r.EpisodeID == 0 }
func (r UnitRef) IsEpisode() bool { return r.EpisodeID != 0 && r.ContentID == 0 }

func (r UnitRef) Validate() error {
	if r.IsContent() || r.IsEpisode() {
		return nil
	}
	return ErrInvalidUnitRef
}

// RefID returns the raw referenced ID, used for ledger reference fields.
func (r UnitRef) RefID() int64 {
	if r.IsEpisode() {
		return int64(r.EpisodeID)
	}
	return int64(r.ContentID)
}

// Key returns a stable string key for per-unit lock scoping.
func (r UnitRef) Key() string {
	if r.IsEpisode() {
		return fmt.Sprintf("episode:%d", r.EpisodeID)
	}
	return fmt.Sprintf("content:%d", r.ContentID)
}

// =============================================================================
// CATALOG RECORDS
// =============================================================================

// Content is a standalone watchable item.
type Content struct {
	ID           ContentID
	Title        string
	Description  string
	ThumbnailURL string
	VideoURL     string
	Duration     int // minutes
	Type         string
	ReleaseYear  int
	Genres       []string
	Director     string
	AgeRating    string
	Language     string
	ViewCount    int
	AddedDate    time.Time
	IsFeatured   bool
	PointValue   int
}

// Series groups episodes and carries the genre metadata episodes inherit.
type Series struct {
	ID               SeriesID
	Title            string
	Description      string
	ThumbnailURL     string
	Seasons          int
	TotalEpisodes    int
	ReleaseYearStart int
	ReleaseYearEnd   int
	Genres           []string
	Creator          string
	AgeRating        string
	IsFeatured       bool
}

// Episode is a watchable item inside a series.
type Episode struct {
	ID            EpisodeID
	SeriesID      SeriesID
	Title         string
	Description   string
	SeasonNumber  int
	EpisodeNumber int
	Duration      int // minutes
	ThumbnailURL  string
	VideoURL      string
	ReleaseDate   time.Time
	ViewCount     int
	PointValue    int
}

// Unit is the resolved, award-relevant view of a watchable unit.
// The accrual path consumes this and nothing else from the catalog.
type Unit struct {
	Ref      UnitRef
	Title    string
	Points   int
	Duration int // minutes
	Genres   []string
}
