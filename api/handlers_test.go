package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-9090/DocuStream/api"
	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
	"github.com/kunal-9090/DocuStream/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store  *sqlite.Store
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat := catalog.NewService(store)
	coord := engine.NewCoordinator(store, cat, nil)
	handler := api.NewHandler(store, cat, coord, nil)
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	return &fixture{store: store, server: server}
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) seedUser(t *testing.T) engine.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), engine.User{
		Username: "maya", DisplayName: "Maya Chen", Email: "maya@example.com",
		JoinDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) seedContent(t *testing.T, points int) catalog.Content {
	t.Helper()
	c, err := f.store.CreateContent(context.Background(), catalog.Content{
		Title: "The Deep Blue", Description: "d", ThumbnailURL: "/t.jpg", VideoURL: "/v.mp4",
		Duration: 95, Type: "documentary", ReleaseYear: 2023,
		Genres: []string{"Nature"}, Language: "English",
		AddedDate: time.Now().UTC(), IsFeatured: true, PointValue: points,
	})
	require.NoError(t, err)
	return c
}

// =============================================================================
// PROGRESS REPORTING
// =============================================================================

func TestAPI_SubmitProgress_AwardFlow(t *testing.T) {
	// GIVEN: A seeded user and 50-point documentary
	// WHEN: Posting 40% then 90% then 95%
	// THEN: Only the 90% report returns awarded points, and the points
	//       summary reflects one award

	f := newFixture(t)
	u := f.seedUser(t)
	c := f.seedContent(t, 50)
	cid := int64(c.ID)

	resp := f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &cid, WatchPercentage: 40,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[api.AccrualDTO](t, resp)
	assert.Zero(t, res.AwardedPoints)
	assert.Equal(t, 40, res.Progress.WatchPercentage)

	resp = f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &cid, WatchPercentage: 90,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[api.AccrualDTO](t, resp)
	assert.Equal(t, 50, res.AwardedPoints)
	assert.True(t, res.Progress.IsCompleted)

	resp = f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &cid, WatchPercentage: 95,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[api.AccrualDTO](t, resp)
	assert.Zero(t, res.AwardedPoints)

	resp = f.get(t, fmt.Sprintf("/api/users/%d/points", u.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[engine.PointsSummary](t, resp)
	assert.Equal(t, 50, sum.Total)
	assert.Equal(t, 50, sum.Today)
}

func TestAPI_SubmitProgress_Validation(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)
	c := f.seedContent(t, 50)
	cid := int64(c.ID)
	eid := int64(1)

	// Percentage out of range
	resp := f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &cid, WatchPercentage: 120,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Neither content nor episode
	resp = f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), WatchPercentage: 50,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Both content and episode
	resp = f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &cid, EpisodeID: &eid, WatchPercentage: 50,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed body
	respRaw, err := http.Post(f.server.URL+"/api/progress", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, respRaw.StatusCode)
	respRaw.Body.Close()
}

func TestAPI_SubmitProgress_NotFound(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)
	c := f.seedContent(t, 50)
	cid := int64(c.ID)
	missing := int64(999)

	// Unknown content
	resp := f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: int64(u.ID), ContentID: &missing, WatchPercentage: 50,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Unknown user
	resp = f.post(t, "/api/progress", api.SubmitProgressRequest{
		UserID: 999, ContentID: &cid, WatchPercentage: 50,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// USERS
// =============================================================================

func TestAPI_CreateAndGetUser(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/users", api.CreateUserRequest{
		Username: "arjun", DisplayName: "Arjun Patel", Email: "arjun@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.UserDTO](t, resp)
	assert.Equal(t, "arjun", created.Username)
	assert.Zero(t, created.Points)

	resp = f.get(t, fmt.Sprintf("/api/users/%d", created.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.UserDTO](t, resp)
	assert.Equal(t, created.ID, got.ID)

	// Invalid email rejected
	resp = f.post(t, "/api/users", api.CreateUserRequest{
		Username: "bad", DisplayName: "Bad", Email: "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown user 404
	resp = f.get(t, "/api/users/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// CHALLENGES + BADGES
// =============================================================================

func TestAPI_ChallengeAdvanceAndConflict(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)
	ctx := context.Background()

	live, err := f.store.CreateChallenge(ctx, engine.Challenge{
		Title: "Nature Week", Description: "d",
		StartDate: time.Now().UTC().AddDate(0, 0, -1),
		EndDate:   time.Now().UTC().AddDate(0, 0, 7),
		RequirementType: engine.RequirementCount, RequirementValue: 2,
		PointReward: 100, Difficulty: "easy",
	})
	require.NoError(t, err)

	expired, err := f.store.CreateChallenge(ctx, engine.Challenge{
		Title: "Closed", Description: "d",
		StartDate: time.Now().UTC().AddDate(0, 0, -10),
		EndDate:   time.Now().UTC().AddDate(0, 0, -1),
		RequirementType: engine.RequirementCount, RequirementValue: 2,
		Difficulty: "easy",
	})
	require.NoError(t, err)

	resp := f.post(t, "/api/challenges/advance", api.AdvanceChallengeRequest{
		UserID: int64(u.ID), ChallengeID: int64(live.ID), Value: 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prog := decode[api.ChallengeProgressDTO](t, resp)
	assert.Equal(t, string(engine.ChallengeCompleted), prog.Status)

	// Expired challenge: new start conflicts
	resp = f.post(t, "/api/challenges/advance", api.AdvanceChallengeRequest{
		UserID: int64(u.ID), ChallengeID: int64(expired.ID), Value: 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Listing shows only the open definition
	resp = f.get(t, "/api/challenges")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defs := decode[[]api.ChallengeDTO](t, resp)
	require.Len(t, defs, 1)
	assert.Equal(t, int64(live.ID), defs[0].ID)
}

func TestAPI_BadgeAwardIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)

	def, err := f.store.CreateBadge(context.Background(), engine.Badge{
		Name: "First Watch", Description: "d", ImageURL: "/b.png",
		Category: "milestones", Tier: "bronze",
		RequirementType: "watch_count", RequirementValue: 1,
		PointValue: 10, Rarity: "common",
	})
	require.NoError(t, err)

	req := api.AwardBadgeRequest{UserID: int64(u.ID), BadgeID: int64(def.ID)}

	resp := f.post(t, "/api/admin/badges/award", req)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/api/admin/badges/award", req)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "repeat returns the existing award")
	resp.Body.Close()

	resp = f.get(t, fmt.Sprintf("/api/users/%d/badges", u.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ubs := decode[[]api.UserBadgeDTO](t, resp)
	require.Len(t, ubs, 1)
	assert.Equal(t, "First Watch", ubs[0].Badge.Name)

	resp = f.get(t, fmt.Sprintf("/api/users/%d/points", u.ID))
	sum := decode[engine.PointsSummary](t, resp)
	assert.Equal(t, 10, sum.Total, "badge points paid once")
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAPI_CatalogBrowse(t *testing.T) {
	f := newFixture(t)
	c := f.seedContent(t, 50)

	resp := f.get(t, "/api/content")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]api.ContentDTO](t, resp)
	require.Len(t, all, 1)

	resp = f.get(t, "/api/content/featured")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	featured := decode[[]api.ContentDTO](t, resp)
	require.Len(t, featured, 1)

	resp = f.get(t, "/api/content/genre/Nature")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byGenre := decode[[]api.ContentDTO](t, resp)
	require.Len(t, byGenre, 1)

	resp = f.get(t, fmt.Sprintf("/api/content/%d", c.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	one := decode[api.ContentDTO](t, resp)
	assert.Equal(t, 1, one.ViewCount, "detail view bumps the counter")

	resp = f.get(t, "/api/content/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// LIST + RATING
// =============================================================================

func TestAPI_ListAndRating(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t)
	c := f.seedContent(t, 50)
	cid := int64(c.ID)

	resp := f.post(t, "/api/list", api.SetListRequest{
		UserID: int64(u.ID), ContentID: &cid, InList: true, ListType: "watchlist",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[api.ProgressDTO](t, resp)
	assert.True(t, rec.IsInList)
	assert.Equal(t, "watchlist", rec.ListType)

	resp = f.post(t, "/api/rating", api.RateRequest{
		UserID: int64(u.ID), ContentID: &cid, Rating: 4,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec = decode[api.ProgressDTO](t, resp)
	assert.Equal(t, 4, rec.UserRating)

	// Out-of-range rating rejected by validation
	resp = f.post(t, "/api/rating", api.RateRequest{
		UserID: int64(u.ID), ContentID: &cid, Rating: 9,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
