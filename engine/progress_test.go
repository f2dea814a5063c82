package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
	"github.com/kunal-9090/DocuStream/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func createTestContent(t *testing.T, store *sqlite.Store, title string, duration, points int, genres ...string) catalog.Content {
	t.Helper()
	c, err := store.CreateContent(context.Background(), catalog.Content{
		Title:        title,
		Description:  title,
		ThumbnailURL: "/thumbs/test.jpg",
		VideoURL:     "/video/test.mp4",
		Duration:     duration,
		Type:         "documentary",
		ReleaseYear:  2024,
		Genres:       genres,
		Language:     "English",
		AddedDate:    time.Now().UTC(),
		PointValue:   points,
	})
	require.NoError(t, err)
	return c
}

// =============================================================================
// REPORTING + STICKY COMPLETION
// =============================================================================

func TestProgress_Report_BelowThreshold(t *testing.T) {
	// GIVEN: A fresh user and a content item
	// WHEN: Reporting 40%
	// THEN: Percentage stored, not completed, nothing awarded

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	c := createTestContent(t, store, "The Deep Blue", 95, 50, "Nature")
	ref := catalog.ContentRef(c.ID)

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Record.WatchPercentage)
	assert.False(t, res.Record.IsCompleted)
	assert.Equal(t, 0, res.AwardedPoints)
}

func TestProgress_CompletionAlwaysCarriesAward(t *testing.T) {
	// GIVEN: Reports flowing through the one reporting entry point
	// WHEN: A unit flips to completed
	// THEN: The flipping call paid the unit's points; a completed
	//       unit is never left unpaid

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	ref := catalog.ContentRef(createTestContent(t, store, "Concrete Giants", 82, 40).ID)

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, res.AwardedPoints)

	res, err = coord.OnProgressReported(ctx, u.ID, ref, 86)
	require.NoError(t, err)
	assert.True(t, res.Record.IsCompleted)
	assert.Equal(t, 40, res.AwardedPoints)

	entries, err := ledger.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.TxWatching, entries[0].Type)
	assert.Equal(t, 40, entries[0].Amount)
}

func TestProgress_Report_LowerPercentageKeepsCompletion(t *testing.T) {
	// GIVEN: A completed unit
	// WHEN: A rewatch reports 10%
	// THEN: Percentage updates but IsCompleted stays true

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	tracker := engine.NewTracker(store)
	ctx := context.Background()

	u := createTestUser(t, store, "arjun")
	ref := catalog.ContentRef(createTestContent(t, store, "Signals from the Void", 110, 60).ID)

	_, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
	require.NoError(t, err)

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Record.WatchPercentage)
	assert.Equal(t, 0, res.AwardedPoints)

	rec, err := tracker.Get(ctx, u.ID, ref)
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted, "completion is sticky")
	assert.Equal(t, 10, rec.WatchPercentage)
}

func TestProgress_Report_ClampsPercentage(t *testing.T) {
	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ctx := context.Background()

	u := createTestUser(t, store, "sofia")
	ref := catalog.ContentRef(createTestContent(t, store, "Clamped", 60, 10).ID)

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 250)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Record.WatchPercentage)
	assert.Equal(t, 10, res.AwardedPoints)

	res, err = coord.OnProgressReported(ctx, u.ID, ref, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Record.WatchPercentage)
}

func TestProgress_Report_InvalidRef(t *testing.T) {
	store := newTestStore(t)
	coord := newTestCoordinator(t, store)

	u := createTestUser(t, store, "maya")

	// Neither content nor episode
	_, err := coord.OnProgressReported(context.Background(), u.ID, catalog.UnitRef{}, 50)
	assert.ErrorIs(t, err, catalog.ErrInvalidUnitRef)

	// Both set
	_, err = coord.OnProgressReported(context.Background(), u.ID, catalog.UnitRef{ContentID: 1, EpisodeID: 2}, 50)
	assert.ErrorIs(t, err, catalog.ErrInvalidUnitRef)
}

// =============================================================================
// LIST MEMBERSHIP + RATINGS
// =============================================================================

func TestTracker_SetList_IndependentOfWatchState(t *testing.T) {
	// GIVEN: A unit the user never started watching
	// WHEN: Adding it to the watchlist
	// THEN: A record exists with membership set and zero watch state

	store := newTestStore(t)
	tracker := engine.NewTracker(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	ref := catalog.ContentRef(createTestContent(t, store, "Unwatched", 70, 30).ID)

	rec, err := tracker.SetList(ctx, u.ID, ref, true, "watchlist")
	require.NoError(t, err)
	assert.True(t, rec.IsInList)
	assert.Equal(t, "watchlist", rec.ListType)
	assert.Equal(t, 0, rec.WatchPercentage)
	assert.False(t, rec.IsCompleted)
}

func TestTracker_SetList_RemoveClearsType(t *testing.T) {
	store := newTestStore(t)
	tracker := engine.NewTracker(store)
	ctx := context.Background()

	u := createTestUser(t, store, "arjun")
	ref := catalog.ContentRef(createTestContent(t, store, "Listed", 70, 30).ID)

	_, err := tracker.SetList(ctx, u.ID, ref, true, "favorites")
	require.NoError(t, err)

	rec, err := tracker.SetList(ctx, u.ID, ref, false, "favorites")
	require.NoError(t, err)
	assert.False(t, rec.IsInList)
	assert.Empty(t, rec.ListType)
}

func TestTracker_SetList_NeverTouchesCompletion(t *testing.T) {
	// GIVEN: A completed unit
	// WHEN: Toggling list membership
	// THEN: Percentage and completion are untouched

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	tracker := engine.NewTracker(store)
	ctx := context.Background()

	u := createTestUser(t, store, "sofia")
	ref := catalog.ContentRef(createTestContent(t, store, "Done", 70, 30).ID)

	_, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
	require.NoError(t, err)

	rec, err := tracker.SetList(ctx, u.ID, ref, true, "watchlist")
	require.NoError(t, err)
	assert.Equal(t, 90, rec.WatchPercentage)
	assert.True(t, rec.IsCompleted)
}

func TestTracker_Rate_Validation(t *testing.T) {
	store := newTestStore(t)
	tracker := engine.NewTracker(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	ref := catalog.ContentRef(createTestContent(t, store, "Rated", 70, 30).ID)

	for _, bad := range []int{0, -1, 6} {
		_, err := tracker.Rate(ctx, u.ID, ref, bad)
		assert.ErrorIs(t, err, engine.ErrInvalidRating, "rating %d", bad)
	}

	rec, err := tracker.Rate(ctx, u.ID, ref, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.UserRating)
}

// =============================================================================
// WATCH MINUTE MATH
// =============================================================================

func TestWatchedMinutes(t *testing.T) {
	// 52-minute film, 50% forward: 26 minutes. Truncation, never rounding up.
	assert.Equal(t, 26, engine.WatchedMinutes(52, 50))
	assert.Equal(t, 0, engine.WatchedMinutes(52, 1))  // 0.52 truncates
	assert.Equal(t, 95, engine.WatchedMinutes(95, 100))
	assert.Equal(t, 0, engine.WatchedMinutes(95, 0))
	assert.Equal(t, 0, engine.WatchedMinutes(0, 50))
	assert.Equal(t, 0, engine.WatchedMinutes(95, -10))
}
