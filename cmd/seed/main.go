/*
main.go - Demo data seeder

PURPOSE:
  Populates a database with a small documentary catalog, demo users,
  a running challenge set, and badge definitions so the server has
  something to show on first boot.

USAGE:
  ./seed -db="./docustream.db"

The seeder is idempotent enough for development use: running it twice
creates duplicate rows, so point it at a fresh database.
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/kunal-9090/DocuStream/catalog"
	"github.com/kunal-9090/DocuStream/engine"
	"github.com/kunal-9090/DocuStream/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "docustream.db", "SQLite database path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", *dbPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := seed(ctx, store); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seeding complete", "db", *dbPath)
}

func seed(ctx context.Context, store *sqlite.Store) error {
	now := time.Now().UTC()

	users := []engine.User{
		{Username: "maya", DisplayName: "Maya Chen", Email: "maya@example.com", JoinDate: now},
		{Username: "arjun", DisplayName: "Arjun Patel", Email: "arjun@example.com", JoinDate: now},
		{Username: "sofia", DisplayName: "Sofia Reyes", Email: "sofia@example.com", JoinDate: now},
	}
	for _, u := range users {
		if _, err := store.CreateUser(ctx, u); err != nil {
			return err
		}
	}

	content := []catalog.Content{
		{
			Title:        "The Deep Blue",
			Description:  "A dive into the ocean's least explored trenches.",
			ThumbnailURL: "/thumbs/deep-blue.jpg",
			VideoURL:     "/video/deep-blue.mp4",
			Duration:     95,
			Type:         "documentary",
			ReleaseYear:  2023,
			Genres:       []string{"Nature", "Science"},
			Director:     "Lena Moore",
			AgeRating:    "PG",
			Language:     "English",
			AddedDate:    now,
			IsFeatured:   true,
			PointValue:   50,
		},
		{
			Title:        "Concrete Giants",
			Description:  "How megacities grow, strain, and reinvent themselves.",
			ThumbnailURL: "/thumbs/concrete-giants.jpg",
			VideoURL:     "/video/concrete-giants.mp4",
			Duration:     82,
			Type:         "documentary",
			ReleaseYear:  2022,
			Genres:       []string{"Society", "Technology"},
			Director:     "Tomas Eriksen",
			AgeRating:    "PG",
			Language:     "English",
			AddedDate:    now,
			PointValue:   40,
		},
		{
			Title:        "Signals from the Void",
			Description:  "Radio astronomy and the search for something listening back.",
			ThumbnailURL: "/thumbs/signals.jpg",
			VideoURL:     "/video/signals.mp4",
			Duration:     110,
			Type:         "documentary",
			ReleaseYear:  2024,
			Genres:       []string{"Science", "Space"},
			Director:     "Priya Nair",
			AgeRating:    "PG",
			Language:     "English",
			AddedDate:    now,
			IsFeatured:   true,
			PointValue:   60,
		},
	}
	for _, c := range content {
		if _, err := store.CreateContent(ctx, c); err != nil {
			return err
		}
	}

	series, err := store.CreateSeries(ctx, catalog.Series{
		Title:            "Wild Borders",
		Description:      "Ecosystems that ignore the lines humans draw.",
		ThumbnailURL:     "/thumbs/wild-borders.jpg",
		Seasons:          1,
		TotalEpisodes:    3,
		ReleaseYearStart: 2023,
		Genres:           []string{"Nature"},
		Creator:          "Dana Okafor",
		AgeRating:        "PG",
		IsFeatured:       true,
	})
	if err != nil {
		return err
	}

	episodes := []catalog.Episode{
		{SeriesID: series.ID, Title: "The River Corridor", SeasonNumber: 1, EpisodeNumber: 1, Duration: 45, PointValue: 25},
		{SeriesID: series.ID, Title: "High Passes", SeasonNumber: 1, EpisodeNumber: 2, Duration: 48, PointValue: 25},
		{SeriesID: series.ID, Title: "The Flooded Forest", SeasonNumber: 1, EpisodeNumber: 3, Duration: 51, PointValue: 30},
	}
	for _, e := range episodes {
		e.Description = "Episode of Wild Borders."
		e.ThumbnailURL = "/thumbs/wild-borders.jpg"
		e.VideoURL = "/video/wild-borders.mp4"
		e.ReleaseDate = now
		if _, err := store.CreateEpisode(ctx, e); err != nil {
			return err
		}
	}

	challenges := []engine.Challenge{
		{
			Title:            "Nature Week",
			Description:      "Finish 3 nature documentaries this week.",
			StartDate:        now,
			EndDate:          now.AddDate(0, 0, 7),
			RequirementType:  engine.RequirementCount,
			RequirementValue: 3,
			RequirementGenre: "Nature",
			PointReward:      100,
			Difficulty:       "easy",
			IsRecurring:      true,
		},
		{
			Title:            "Deep Focus",
			Description:      "Watch 300 minutes of any documentaries this month.",
			StartDate:        now,
			EndDate:          now.AddDate(0, 1, 0),
			RequirementType:  engine.RequirementMinutes,
			RequirementValue: 300,
			PointReward:      250,
			Difficulty:       "medium",
		},
	}
	for _, c := range challenges {
		if _, err := store.CreateChallenge(ctx, c); err != nil {
			return err
		}
	}

	badges := []engine.Badge{
		{
			Name:             "First Watch",
			Description:      "Complete your first documentary.",
			ImageURL:         "/badges/first-watch.png",
			Category:         "milestones",
			Tier:             "bronze",
			RequirementType:  "watch_count",
			RequirementValue: 1,
			PointValue:       10,
			Rarity:           "common",
		},
		{
			Name:             "Nature Scholar",
			Description:      "Complete 10 nature documentaries.",
			ImageURL:         "/badges/nature-scholar.png",
			Category:         "genres",
			Tier:             "silver",
			RequirementType:  "genre_count",
			RequirementValue: 10,
			RequirementGenre: "Nature",
			PointValue:       50,
			Rarity:           "uncommon",
		},
		{
			Name:             "Marathon Mind",
			Description:      "Watch 1000 minutes total.",
			ImageURL:         "/badges/marathon-mind.png",
			Category:         "milestones",
			Tier:             "gold",
			RequirementType:  "watch_minutes",
			RequirementValue: 1000,
			PointValue:       100,
			Rarity:           "rare",
		},
	}
	for _, b := range badges {
		if _, err := store.CreateBadge(ctx, b); err != nil {
			return err
		}
	}

	return nil
}
