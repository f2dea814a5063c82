/*
handlers.go - HTTP API handlers for the streaming accrual engine

PURPOSE:
  Exposes the points/progress/challenge/badge engine and the content
  catalog via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    POST   /api/users                       Create user
    GET    /api/users/{id}                  Get user details
    GET    /api/users/{id}/points           Points summary (total/today/week/month)
    GET    /api/users/{id}/transactions     Ledger history
    GET    /api/users/{id}/progress         Watch progress records
    GET    /api/users/{id}/challenges       Per-user challenge state
    GET    /api/users/{id}/badges           Earned badges

  Accrual:
    POST   /api/progress                    Report watch progress (may award)
    POST   /api/list                        Add/remove unit from list
    POST   /api/rating                      Rate a unit
    POST   /api/challenges/advance          Report external challenge progress
    POST   /api/badges/display              Toggle badge profile display

  Catalog:
    GET    /api/content                     All content
    GET    /api/content/featured            Featured content
    GET    /api/content/genre/{genre}       Content by genre
    GET    /api/content/{id}                One item (bumps view count)
    GET    /api/series                      All series
    GET    /api/series/featured             Featured series
    GET    /api/series/{id}                 One series
    GET    /api/series/{id}/episodes        Episodes of a series

  Challenges / admin:
    GET    /api/challenges                  Active challenge definitions
    POST   /api/admin/badges/award          Evaluate + award one badge
    POST   /api/admin/challenges/sweep      Fail expired active challenges

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed unit refs, bad ratings
  - 404: Unknown user/content/episode/challenge/badge
  - 409: Expired challenge, lost write conflicts
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       engine.TxStore
	Catalog     *catalog.Service
	Ledger      *engine.Ledger
	Tracker     *engine.Tracker
	Challenges  *engine.Challenges
	Badges      *engine.Badges
	Coordinator *engine.Coordinator
	Logger      *slog.Logger

	validate *validator.Validate
}

// NewHandler creates a handler wired to the engine services.
func NewHandler(store engine.TxStore, cat *catalog.Service, coord *engine.Coordinator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:       store,
		Catalog:     cat,
		Ledger:      engine.NewLedger(store),
		Tracker:     engine.NewTracker(store),
		Challenges:  engine.NewChallenges(store),
		Badges:      engine.NewBadges(store),
		Coordinator: coord,
		Logger:      logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decodeValid decodes the JSON body into req and runs struct validation.
// Returns false after writing the 400 response on failure.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// userParam parses the {id} URL parameter as a user ID.
func userParam(w http.ResponseWriter, r *http.Request) (engine.UserID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid user id", err)
		return 0, false
	}
	return engine.UserID(id), true
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers a new user with a zero balance.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	u, err := h.Store.CreateUser(r.Context(), engine.User{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		JoinDate:    time.Now().UTC(),
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// GetUser returns a single user with their cached balance.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// GetPoints returns the total/today/weekly/monthly points rollup.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	summary, err := h.Ledger.Summary(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to summarize points", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetTransactions returns the user's ledger history, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	entries, err := h.Ledger.History(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to list transactions", err)
		return
	}
	dtos := make([]TransactionDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTransactionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUserProgress returns all watch records for a user.
func (h *Handler) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	records, err := h.Tracker.ForUser(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to list progress", err)
		return
	}
	dtos := make([]ProgressDTO, len(records))
	for i, p := range records {
		dtos[i] = toProgressDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACCRUAL HANDLERS
// =============================================================================

// SubmitProgress reports a watch position. Crossing the completion
// threshold for the first time awards the unit's points; repeats and
// higher re-reports award nothing.
func (h *Handler) SubmitProgress(w http.ResponseWriter, r *http.Request) {
	var req SubmitProgressRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	res, err := h.Coordinator.OnProgressReported(r.Context(),
		engine.UserID(req.UserID), unitRef(req.ContentID, req.EpisodeID), req.WatchPercentage)
	if err != nil {
		h.writeEngineError(w, "Failed to record progress", err)
		return
	}
	if res.AwardedPoints > 0 {
		pointsAwarded.WithLabelValues(string(engine.TxWatching)).Add(float64(res.AwardedPoints))
	}
	writeJSON(w, http.StatusOK, AccrualDTO{
		Progress:      toProgressDTO(res.Record),
		AwardedPoints: res.AwardedPoints,
	})
}

// SetList adds or removes a unit from the user's list. Never touches
// watch percentage or completion.
func (h *Handler) SetList(w http.ResponseWriter, r *http.Request) {
	var req SetListRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	rec, err := h.Tracker.SetList(r.Context(),
		engine.UserID(req.UserID), unitRef(req.ContentID, req.EpisodeID), req.InList, req.ListType)
	if err != nil {
		h.writeEngineError(w, "Failed to update list", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(rec))
}

// Rate records a 1-5 star rating for a unit.
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	rec, err := h.Tracker.Rate(r.Context(),
		engine.UserID(req.UserID), unitRef(req.ContentID, req.EpisodeID), req.Rating)
	if err != nil {
		h.writeEngineError(w, "Failed to record rating", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(rec))
}

// =============================================================================
// CHALLENGE HANDLERS
// =============================================================================

// ListChallenges returns challenge definitions whose window is open.
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Challenges.ListActive(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list challenges", err)
		return
	}
	dtos := make([]ChallengeDTO, len(defs))
	for i, c := range defs {
		dtos[i] = toChallengeDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AdvanceChallenge reports external progress toward one challenge.
func (h *Handler) AdvanceChallenge(w http.ResponseWriter, r *http.Request) {
	var req AdvanceChallengeRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	prog, err := h.Challenges.Advance(r.Context(),
		engine.UserID(req.UserID), engine.ChallengeID(req.ChallengeID), req.Value)
	if err != nil {
		h.writeEngineError(w, "Failed to advance challenge", err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeProgressDTO(prog))
}

// GetUserChallenges returns all of a user's challenge state joined with
// the definitions.
func (h *Handler) GetUserChallenges(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	ucs, err := h.Challenges.ForUser(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to list user challenges", err)
		return
	}
	dtos := make([]UserChallengeDTO, len(ucs))
	for i, uc := range ucs {
		dtos[i] = UserChallengeDTO{
			Progress:  toChallengeProgressDTO(uc.Progress),
			Challenge: toChallengeDTO(uc.Challenge),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SweepChallenges fails active progress on closed-window challenges.
// POST /api/admin/challenges/sweep
func (h *Handler) SweepChallenges(w http.ResponseWriter, r *http.Request) {
	n, err := h.Challenges.FailExpired(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to sweep challenges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"failed": n})
}

// =============================================================================
// BADGE HANDLERS
// =============================================================================

// AwardBadge evaluates and awards one badge. Safe to repeat: the award
// and its points land at most once.
// POST /api/admin/badges/award
func (h *Handler) AwardBadge(w http.ResponseWriter, r *http.Request) {
	var req AwardBadgeRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	award, fresh, err := h.Badges.EvaluateAndAward(r.Context(),
		engine.UserID(req.UserID), engine.BadgeID(req.BadgeID))
	if err != nil {
		h.writeEngineError(w, "Failed to award badge", err)
		return
	}
	status := http.StatusOK
	if fresh {
		status = http.StatusCreated
	}
	writeJSON(w, status, toBadgeAwardDTO(award))
}

// DisplayBadge toggles whether an earned badge shows on the profile.
func (h *Handler) DisplayBadge(w http.ResponseWriter, r *http.Request) {
	var req DisplayBadgeRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	award, err := h.Badges.SetDisplayed(r.Context(),
		engine.UserID(req.UserID), engine.BadgeID(req.BadgeID), req.Displayed)
	if err != nil {
		h.writeEngineError(w, "Failed to update badge display", err)
		return
	}
	writeJSON(w, http.StatusOK, toBadgeAwardDTO(award))
}

// GetUserBadges returns a user's earned badges, newest first.
func (h *Handler) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	id, ok := userParam(w, r)
	if !ok {
		return
	}
	ubs, err := h.Badges.ForUser(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to list badges", err)
		return
	}
	dtos := make([]UserBadgeDTO, len(ubs))
	for i, ub := range ubs {
		dtos[i] = UserBadgeDTO{
			Award: toBadgeAwardDTO(ub.Award),
			Badge: toBadgeDTO(ub.Badge),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.ListContent(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list content", err)
		return
	}
	writeJSON(w, http.StatusOK, toContentDTOs(items))
}

func (h *Handler) FeaturedContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.FeaturedContent(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list featured content", err)
		return
	}
	writeJSON(w, http.StatusOK, toContentDTOs(items))
}

func (h *Handler) ContentByGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	items, err := h.Catalog.ContentByGenre(r.Context(), genre)
	if err != nil {
		h.writeEngineError(w, "Failed to list content by genre", err)
		return
	}
	writeJSON(w, http.StatusOK, toContentDTOs(items))
}

// GetContent returns one content item and bumps its view count.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid content id", err)
		return
	}
	c, err := h.Catalog.GetContent(r.Context(), catalog.ContentID(id))
	if err != nil {
		h.writeEngineError(w, "Failed to get content", err)
		return
	}
	writeJSON(w, http.StatusOK, toContentDTO(c))
}

func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.ListSeries(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list series", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesDTOs(items))
}

func (h *Handler) FeaturedSeries(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.FeaturedSeries(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list featured series", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesDTOs(items))
}

func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid series id", err)
		return
	}
	s, err := h.Catalog.GetSeries(r.Context(), catalog.SeriesID(id))
	if err != nil {
		h.writeEngineError(w, "Failed to get series", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesDTO(s))
}

func (h *Handler) GetSeriesEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid series id", err)
		return
	}
	eps, err := h.Catalog.SeriesEpisodes(r.Context(), catalog.SeriesID(id))
	if err != nil {
		h.writeEngineError(w, "Failed to list episodes", err)
		return
	}
	dtos := make([]EpisodeDTO, len(eps))
	for i, e := range eps {
		dtos[i] = toEpisodeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ERROR MAPPING + JSON HELPERS
// =============================================================================

// writeEngineError maps domain errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidUnitRef),
		errors.Is(err, engine.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsNotFound(err), catalog.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrChallengeExpired), engine.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
