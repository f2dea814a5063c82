package engine_test

import (
	"context"
	"sync"
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

func newTestCoordinator(t *testing.T, store *sqlite.Store) *engine.Coordinator {
	t.Helper()
	return engine.NewCoordinator(store, catalog.NewService(store), nil)
}

func createTestEpisode(t *testing.T, store *sqlite.Store, duration, points int, genres ...string) catalog.Episode {
	t.Helper()
	ctx := context.Background()
	sr, err := store.CreateSeries(ctx, catalog.Series{
		Title:            "Wild Borders",
		Description:      "test series",
		ThumbnailURL:     "/thumbs/test.jpg",
		Seasons:          1,
		TotalEpisodes:    1,
		ReleaseYearStart: 2023,
		Genres:           genres,
	})
	require.NoError(t, err)

	ep, err := store.CreateEpisode(ctx, catalog.Episode{
		SeriesID:      sr.ID,
		Title:         "The River Corridor",
		Description:   "test episode",
		SeasonNumber:  1,
		EpisodeNumber: 1,
		Duration:      duration,
		ThumbnailURL:  "/thumbs/test.jpg",
		VideoURL:      "/video/test.mp4",
		ReleaseDate:   time.Now().UTC(),
		PointValue:    points,
	})
	require.NoError(t, err)
	return ep
}

// =============================================================================
// SINGLE AWARD PER UNIT
// =============================================================================

func TestCoordinator_AwardsOnceAcrossReportSequence(t *testing.T) {
	// GIVEN: A 50-point documentary
	// WHEN: Reporting 10, 50, 86, 95
	// THEN: Exactly one 50-point entry, created by the 86% report

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	c := createTestContent(t, store, "The Deep Blue", 95, 50, "Nature")
	ref := catalog.ContentRef(c.ID)

	for _, pct := range []int{10, 50} {
		res, err := coord.OnProgressReported(ctx, u.ID, ref, pct)
		require.NoError(t, err)
		assert.Zero(t, res.AwardedPoints, "at %d%%", pct)
	}

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 86)
	require.NoError(t, err)
	assert.Equal(t, 50, res.AwardedPoints)
	assert.True(t, res.Record.IsCompleted)

	res, err = coord.OnProgressReported(ctx, u.ID, ref, 95)
	require.NoError(t, err)
	assert.Zero(t, res.AwardedPoints, "re-report past threshold must not award")

	entries, err := ledger.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.TxWatching, entries[0].Type)
	assert.Equal(t, 50, entries[0].Amount)
	assert.Equal(t, int64(c.ID), entries[0].ReferenceID)
	assert.Equal(t, "Completed watching The Deep Blue", entries[0].Description)
}

func TestCoordinator_RepeatedCompletionReports(t *testing.T) {
	// GIVEN: A completed unit
	// WHEN: Reporting 90% five more times
	// THEN: Balance never moves again

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "arjun")
	ref := catalog.ContentRef(createTestContent(t, store, "Concrete Giants", 82, 40).ID)

	for i := 0; i < 6; i++ {
		_, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
		require.NoError(t, err)
	}

	total, err := ledger.TotalBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, total)
}

func TestCoordinator_ConcurrentDuplicateReports(t *testing.T) {
	// GIVEN: 8 goroutines reporting 90% for the same (user, unit)
	// WHEN: All complete
	// THEN: One award, one ledger entry, watch count bumped once

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	ref := catalog.ContentRef(createTestContent(t, store, "Signals from the Void", 110, 60).ID)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		awarded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
			assert.NoError(t, err)
			if res.AwardedPoints > 0 {
				mu.Lock()
				awarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, awarded, "exactly one report observes the award")

	total, err := ledger.TotalBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, total)

	entries, err := ledger.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	user, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.WatchCount)
}

func TestCoordinator_IndependentUnitsAndUsers(t *testing.T) {
	// Completion state is scoped per (user, unit): the same user earns
	// from two units, and two users earn from the same unit.

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u1 := createTestUser(t, store, "maya")
	u2 := createTestUser(t, store, "arjun")
	refA := catalog.ContentRef(createTestContent(t, store, "A", 60, 30).ID)
	refB := catalog.ContentRef(createTestContent(t, store, "B", 60, 20).ID)

	for _, rep := range []struct {
		user engine.UserID
		ref  catalog.UnitRef
	}{
		{u1.ID, refA}, {u1.ID, refB}, {u2.ID, refA},
	} {
		res, err := coord.OnProgressReported(ctx, rep.user, rep.ref, 90)
		require.NoError(t, err)
		assert.Positive(t, res.AwardedPoints)
	}

	t1, err := ledger.TotalBalance(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, t1)

	t2, err := ledger.TotalBalance(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, t2)
}

// =============================================================================
// EPISODES
// =============================================================================

func TestCoordinator_EpisodeCompletion(t *testing.T) {
	// GIVEN: An episode worth 25 points in a Nature series
	// WHEN: Reporting 90%
	// THEN: The episode's own point value is awarded with a series-qualified title

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "sofia")
	ep := createTestEpisode(t, store, 45, 25, "Nature")
	ref := catalog.EpisodeRef(ep.ID)

	res, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
	require.NoError(t, err)
	assert.Equal(t, 25, res.AwardedPoints)

	entries, err := ledger.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(ep.ID), entries[0].ReferenceID)
	assert.Equal(t, "Completed watching Wild Borders S1E1: The River Corridor", entries[0].Description)
}

func TestCoordinator_UnknownUnit(t *testing.T) {
	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")

	_, err := coord.OnProgressReported(ctx, u.ID, catalog.ContentRef(404), 50)
	assert.ErrorIs(t, err, catalog.ErrContentNotFound)

	_, err = coord.OnProgressReported(ctx, u.ID, catalog.UnitRef{}, 50)
	assert.ErrorIs(t, err, catalog.ErrInvalidUnitRef)
}

// =============================================================================
// WATCH TOTALS
// =============================================================================

func TestCoordinator_WatchTotals_ForwardDeltaOnly(t *testing.T) {
	// GIVEN: A 100-minute documentary
	// WHEN: Reporting 50, then 30 (rewind), then 90
	// THEN: Minutes accrue only on forward movement, count bumps once

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	ref := catalog.ContentRef(createTestContent(t, store, "Long One", 100, 50).ID)

	_, err := coord.OnProgressReported(ctx, u.ID, ref, 50)
	require.NoError(t, err)
	_, err = coord.OnProgressReported(ctx, u.ID, ref, 30)
	require.NoError(t, err)
	_, err = coord.OnProgressReported(ctx, u.ID, ref, 90)
	require.NoError(t, err)

	user, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.WatchCount)
	// 50 forward + 60 forward (30 -> 90); the rewind adds nothing
	assert.Equal(t, 110, user.WatchMinutes)
}

// =============================================================================
// CHALLENGE ADVANCEMENT FROM WATCHING
// =============================================================================

func TestCoordinator_AdvancesMatchingChallenges(t *testing.T) {
	// GIVEN: The user joined a Nature count challenge (needs 2) and a
	//        minutes challenge (needs 120), plus a History challenge
	// WHEN: Completing two Nature documentaries of 95 and 82 minutes
	// THEN: The count challenge completes and pays; the minutes
	//       challenge holds the summed runtime; History never moves

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	challenges := engine.NewChallenges(store)
	ledger := engine.NewLedger(store)
	ctx := context.Background()

	u := createTestUser(t, store, "maya")
	natureCount := createTestChallenge(t, store, engine.Challenge{
		Title:            "Nature Pair",
		RequirementType:  engine.RequirementCount,
		RequirementValue: 2,
		RequirementGenre: "Nature",
		PointReward:      100,
	})
	minutes := createTestChallenge(t, store, engine.Challenge{
		Title:            "Deep Focus",
		RequirementType:  engine.RequirementMinutes,
		RequirementValue: 120,
	})
	history := createTestChallenge(t, store, engine.Challenge{
		Title:            "History Buff",
		RequirementType:  engine.RequirementCount,
		RequirementValue: 2,
		RequirementGenre: "History",
	})

	for _, id := range []engine.ChallengeID{natureCount.ID, minutes.ID, history.ID} {
		_, err := challenges.Advance(ctx, u.ID, id, 0)
		require.NoError(t, err)
	}

	refA := catalog.ContentRef(createTestContent(t, store, "The Deep Blue", 95, 50, "Nature").ID)
	refB := catalog.ContentRef(createTestContent(t, store, "Wild Coasts", 82, 40, "Nature").ID)

	_, err := coord.OnProgressReported(ctx, u.ID, refA, 90)
	require.NoError(t, err)
	_, err = coord.OnProgressReported(ctx, u.ID, refB, 90)
	require.NoError(t, err)

	ucs, err := challenges.ForUser(ctx, u.ID)
	require.NoError(t, err)
	byID := map[engine.ChallengeID]engine.UserChallenge{}
	for _, uc := range ucs {
		byID[uc.Challenge.ID] = uc
	}

	assert.Equal(t, engine.ChallengeCompleted, byID[natureCount.ID].Progress.Status)
	assert.Equal(t, 2, byID[natureCount.ID].Progress.ProgressValue)
	assert.Equal(t, engine.ChallengeCompleted, byID[minutes.ID].Progress.Status,
		"95+82 minutes crosses the 120 requirement")
	assert.Equal(t, engine.ChallengeActive, byID[history.ID].Progress.Status)
	assert.Equal(t, 0, byID[history.ID].Progress.ProgressValue)

	// 50 + 40 watching + 100 challenge reward; no reward for the
	// zero-point minutes challenge
	total, err := ledger.TotalBalance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 190, total)
}

func TestCoordinator_UnjoinedChallengesDoNotAdvance(t *testing.T) {
	// A challenge the user never joined gets no progress row from
	// watching; joining is explicit.

	store := newTestStore(t)
	coord := newTestCoordinator(t, store)
	challenges := engine.NewChallenges(store)
	ctx := context.Background()

	u := createTestUser(t, store, "arjun")
	createTestChallenge(t, store, engine.Challenge{
		Title:            "Unjoined",
		RequirementType:  engine.RequirementCount,
		RequirementValue: 1,
		PointReward:      500,
	})

	ref := catalog.ContentRef(createTestContent(t, store, "Solo", 60, 30, "Nature").ID)
	_, err := coord.OnProgressReported(ctx, u.ID, ref, 90)
	require.NoError(t, err)

	ucs, err := challenges.ForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, ucs)
}
