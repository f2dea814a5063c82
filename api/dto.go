/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags and are checked
  in handlers before any engine call. Percentages outside 0-100 and
  malformed unit references never reach the accrual path.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: internal domain model
*/
package api

import (
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateUserRequest is the request to register a user.
type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=32"`
	DisplayName string `json:"display_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

// SubmitProgressRequest reports a watch position for one unit. Exactly
// one of content_id / episode_id must be set; the handler rejects both
// or neither before the engine sees it.
type SubmitProgressRequest struct {
	UserID          int64  `json:"user_id" validate:"required,gt=0"`
	ContentID       *int64 `json:"content_id" validate:"omitempty,gt=0"`
	EpisodeID       *int64 `json:"episode_id" validate:"omitempty,gt=0"`
	WatchPercentage int    `json:"watch_percentage" validate:"gte=0,lte=100"`
}

// SetListRequest adds or removes a unit from a user's list.
type SetListRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	ContentID *int64 `json:"content_id" validate:"omitempty,gt=0"`
	EpisodeID *int64 `json:"episode_id" validate:"omitempty,gt=0"`
	InList    bool   `json:"in_list"`
	ListType  string `json:"list_type" validate:"omitempty,oneof=watchlist favorites"`
}

// RateRequest records a 1-5 star rating for a unit.
type RateRequest struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	ContentID *int64 `json:"content_id" validate:"omitempty,gt=0"`
	EpisodeID *int64 `json:"episode_id" validate:"omitempty,gt=0"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
}

// AdvanceChallengeRequest reports external progress toward a challenge.
type AdvanceChallengeRequest struct {
	UserID      int64 `json:"user_id" validate:"required,gt=0"`
	ChallengeID int64 `json:"challenge_id" validate:"required,gt=0"`
	Value       int   `json:"value" validate:"gte=0"`
}

// AwardBadgeRequest asks the badge engine to evaluate one badge for one
// user. Repeats are safe: the award is at-most-once.
type AwardBadgeRequest struct {
	UserID  int64 `json:"user_id" validate:"required,gt=0"`
	BadgeID int64 `json:"badge_id" validate:"required,gt=0"`
}

// DisplayBadgeRequest toggles whether an earned badge shows on the
// user's profile.
type DisplayBadgeRequest struct {
	UserID    int64 `json:"user_id" validate:"required,gt=0"`
	BadgeID   int64 `json:"badge_id" validate:"required,gt=0"`
	Displayed bool  `json:"displayed"`
}

// unitRef builds the catalog reference from the request's pointer pair.
func unitRef(contentID, episodeID *int64) catalog.UnitRef {
	var ref catalog.UnitRef
	if contentID != nil {
		ref.ContentID = catalog.ContentID(*contentID)
	}
	if episodeID != nil {
		ref.EpisodeID = catalog.EpisodeID(*episodeID)
	}
	return ref
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	Points       int    `json:"points"`
	WatchCount   int    `json:"watch_count"`
	WatchMinutes int    `json:"watch_minutes"`
	JoinDate     string `json:"join_date"`
}

func toUserDTO(u engine.User) UserDTO {
	return UserDTO{
		ID:           int64(u.ID),
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		Points:       u.Points,
		WatchCount:   u.WatchCount,
		WatchMinutes: u.WatchMinutes,
		JoinDate:     u.JoinDate.Format(time.RFC3339),
	}
}

// TransactionDTO represents one ledger entry.
type TransactionDTO struct {
	ID             string `json:"id"`
	UserID         int64  `json:"user_id"`
	Amount         int    `json:"amount"`
	Type           string `json:"type"`
	ReferenceID    int64  `json:"reference_id,omitempty"`
	Description    string `json:"description"`
	CurrentBalance int    `json:"current_balance"`
	CreatedAt      string `json:"created_at"`
}

func toTransactionDTO(e engine.LedgerEntry) TransactionDTO {
	return TransactionDTO{
		ID:             e.ID,
		UserID:         int64(e.UserID),
		Amount:         e.Amount,
		Type:           string(e.Type),
		ReferenceID:    e.ReferenceID,
		Description:    e.Description,
		CurrentBalance: e.CurrentBalance,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}

// ProgressDTO represents one per-unit watch record.
type ProgressDTO struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	ContentID       int64  `json:"content_id,omitempty"`
	EpisodeID       int64  `json:"episode_id,omitempty"`
	WatchPercentage int    `json:"watch_percentage"`
	IsCompleted     bool   `json:"is_completed"`
	LastWatchedAt   string `json:"last_watched_at"`
	UserRating      int    `json:"user_rating,omitempty"`
	IsInList        bool   `json:"is_in_list"`
	ListType        string `json:"list_type,omitempty"`
}

func toProgressDTO(p engine.ProgressRecord) ProgressDTO {
	return ProgressDTO{
		ID:              p.ID,
		UserID:          int64(p.UserID),
		ContentID:       int64(p.Unit.ContentID),
		EpisodeID:       int64(p.Unit.EpisodeID),
		WatchPercentage: p.WatchPercentage,
		IsCompleted:     p.IsCompleted,
		LastWatchedAt:   p.LastWatchedAt.Format(time.RFC3339),
		UserRating:      p.UserRating,
		IsInList:        p.IsInList,
		ListType:        p.ListType,
	}
}

// AccrualDTO is the response to a progress report: the updated record
// plus any points this specific report earned.
type AccrualDTO struct {
	Progress      ProgressDTO `json:"progress"`
	AwardedPoints int         `json:"awarded_points"`
}

// ChallengeDTO represents a challenge definition.
type ChallengeDTO struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ImageURL         string `json:"image_url,omitempty"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	RequirementType  string `json:"requirement_type"`
	RequirementValue int    `json:"requirement_value"`
	RequirementGenre string `json:"requirement_genre,omitempty"`
	PointReward      int    `json:"point_reward"`
	Difficulty       string `json:"difficulty"`
	IsRecurring      bool   `json:"is_recurring"`
}

func toChallengeDTO(c engine.Challenge) ChallengeDTO {
	return ChallengeDTO{
		ID:               int64(c.ID),
		Title:            c.Title,
		Description:      c.Description,
		ImageURL:         c.ImageURL,
		StartDate:        c.StartDate.Format(time.RFC3339),
		EndDate:          c.EndDate.Format(time.RFC3339),
		RequirementType:  string(c.RequirementType),
		RequirementValue: c.RequirementValue,
		RequirementGenre: c.RequirementGenre,
		PointReward:      c.PointReward,
		Difficulty:       c.Difficulty,
		IsRecurring:      c.IsRecurring,
	}
}

// ChallengeProgressDTO represents per-user challenge state.
type ChallengeProgressDTO struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	ChallengeID    int64  `json:"challenge_id"`
	ProgressValue  int    `json:"progress_value"`
	Status         string `json:"status"`
	StartDate      string `json:"start_date"`
	CompletionDate string `json:"completion_date,omitempty"`
}

func toChallengeProgressDTO(p engine.ChallengeProgress) ChallengeProgressDTO {
	dto := ChallengeProgressDTO{
		ID:            p.ID,
		UserID:        int64(p.UserID),
		ChallengeID:   int64(p.ChallengeID),
		ProgressValue: p.ProgressValue,
		Status:        string(p.Status),
		StartDate:     p.StartDate.Format(time.RFC3339),
	}
	if p.CompletionDate != nil {
		dto.CompletionDate = p.CompletionDate.Format(time.RFC3339)
	}
	return dto
}

// UserChallengeDTO joins progress with its definition.
type UserChallengeDTO struct {
	Progress  ChallengeProgressDTO `json:"progress"`
	Challenge ChallengeDTO         `json:"challenge"`
}

// BadgeDTO represents a badge definition.
type BadgeDTO struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	ImageURL         string `json:"image_url,omitempty"`
	Category         string `json:"category"`
	Tier             string `json:"tier"`
	RequirementType  string `json:"requirement_type"`
	RequirementValue int    `json:"requirement_value"`
	RequirementGenre string `json:"requirement_genre,omitempty"`
	PointValue       int    `json:"point_value"`
	Rarity           string `json:"rarity"`
}

func toBadgeDTO(b engine.Badge) BadgeDTO {
	return BadgeDTO{
		ID:               int64(b.ID),
		Name:             b.Name,
		Description:      b.Description,
		ImageURL:         b.ImageURL,
		Category:         b.Category,
		Tier:             b.Tier,
		RequirementType:  b.RequirementType,
		RequirementValue: b.RequirementValue,
		RequirementGenre: b.RequirementGenre,
		PointValue:       b.PointValue,
		Rarity:           b.Rarity,
	}
}

// BadgeAwardDTO represents one earned badge.
type BadgeAwardDTO struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	BadgeID     int64  `json:"badge_id"`
	DateEarned  string `json:"date_earned"`
	IsDisplayed bool   `json:"is_displayed"`
}

func toBadgeAwardDTO(a engine.BadgeAward) BadgeAwardDTO {
	return BadgeAwardDTO{
		ID:          a.ID,
		UserID:      int64(a.UserID),
		BadgeID:     int64(a.BadgeID),
		DateEarned:  a.DateEarned.Format(time.RFC3339),
		IsDisplayed: a.IsDisplayed,
	}
}

// UserBadgeDTO joins an award with its definition.
type UserBadgeDTO struct {
	Award BadgeAwardDTO `json:"award"`
	Badge BadgeDTO      `json:"badge"`
}

// ContentDTO represents a standalone watchable item.
type ContentDTO struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ThumbnailURL string   `json:"thumbnail_url"`
	VideoURL     string   `json:"video_url"`
	Duration     int      `json:"duration"`
	Type         string   `json:"type"`
	ReleaseYear  int      `json:"release_year"`
	Genres       []string `json:"genres"`
	Director     string   `json:"director,omitempty"`
	AgeRating    string   `json:"age_rating,omitempty"`
	Language     string   `json:"language"`
	ViewCount    int      `json:"view_count"`
	AddedDate    string   `json:"added_date"`
	IsFeatured   bool     `json:"is_featured"`
	PointValue   int      `json:"point_value"`
}

func toContentDTO(c catalog.Content) ContentDTO {
	return ContentDTO{
		ID:           int64(c.ID),
		Title:        c.Title,
		Description:  c.Description,
		ThumbnailURL: c.ThumbnailURL,
		VideoURL:     c.VideoURL,
		Duration:     c.Duration,
		Type:         c.Type,
		ReleaseYear:  c.ReleaseYear,
		Genres:       c.Genres,
		Director:     c.Director,
		AgeRating:    c.AgeRating,
		Language:     c.Language,
		ViewCount:    c.ViewCount,
		AddedDate:    c.AddedDate.Format(time.RFC3339),
		IsFeatured:   c.IsFeatured,
		PointValue:   c.PointValue,
	}
}

func toContentDTOs(items []catalog.Content) []ContentDTO {
	dtos := make([]ContentDTO, len(items))
	for i, c := range items {
		dtos[i] = toContentDTO(c)
	}
	return dtos
}

// SeriesDTO represents a documentary series.
type SeriesDTO struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ThumbnailURL     string   `json:"thumbnail_url"`
	Seasons          int      `json:"seasons"`
	TotalEpisodes    int      `json:"total_episodes"`
	ReleaseYearStart int      `json:"release_year_start"`
	ReleaseYearEnd   int      `json:"release_year_end,omitempty"`
	Genres           []string `json:"genres"`
	Creator          string   `json:"creator,omitempty"`
	AgeRating        string   `json:"age_rating,omitempty"`
	IsFeatured       bool     `json:"is_featured"`
}

func toSeriesDTO(s catalog.Series) SeriesDTO {
	return SeriesDTO{
		ID:               int64(s.ID),
		Title:            s.Title,
		Description:      s.Description,
		ThumbnailURL:     s.ThumbnailURL,
		Seasons:          s.Seasons,
		TotalEpisodes:    s.TotalEpisodes,
		ReleaseYearStart: s.ReleaseYearStart,
		ReleaseYearEnd:   s.ReleaseYearEnd,
		Genres:           s.Genres,
		Creator:          s.Creator,
		AgeRating:        s.AgeRating,
		IsFeatured:       s.IsFeatured,
	}
}

func toSeriesDTOs(items []catalog.Series) []SeriesDTO {
	dtos := make([]SeriesDTO, len(items))
	for i, s := range items {
		dtos[i] = toSeriesDTO(s)
	}
	return dtos
}

// EpisodeDTO represents one episode inside a series.
type EpisodeDTO struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"series_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Duration      int    `json:"duration"`
	ThumbnailURL  string `json:"thumbnail_url"`
	VideoURL      string `json:"video_url"`
	ReleaseDate   string `json:"release_date"`
	ViewCount     int    `json:"view_count"`
	PointValue    int    `json:"point_value"`
}

func toEpisodeDTO(e catalog.Episode) EpisodeDTO {
	return EpisodeDTO{
		ID:            int64(e.ID),
		SeriesID:      int64(e.SeriesID),
		Title:         e.Title,
		Description:   e.Description,
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		Duration:      e.Duration,
		ThumbnailURL:  e.ThumbnailURL,
		VideoURL:      e.VideoURL,
		ReleaseDate:   e.ReleaseDate.Format(time.RFC3339),
		ViewCount:     e.ViewCount,
		PointValue:    e.PointValue,
	}
}
