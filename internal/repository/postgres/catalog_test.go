package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/kirinyoku/stagepass/internal/repository"
	"github.com/kirinyoku/stagepass/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepo(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	store := NewStore(pool)

	beginAt := time.Date(2025, 7, 10, 20, 0, 0, 0, time.UTC)
	endAt := beginAt.Add(3 * time.Hour)

	criteria := func(title string) domain.EventCriteria {
		return domain.EventCriteria{
			Title:    title,
			Artist:   "Drake",
			Location: "Forest National, Brussels, Belgium",
			BeginAt:  beginAt,
			EndAt:    endAt,
		}
	}

	t.Run("find event detail resolves a unique match", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertEvent(t, ctx, pool, "Unique Night", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)

		got, err := store.Catalog().FindEventDetail(ctx, criteria("Unique Night"))
		require.NoError(t, err)
		require.Equal(t, id, got.ID)
		require.Equal(t, "Unique Night", got.Title)
		require.Equal(t, "Drake", got.ArtistName)
		require.Equal(t, "Forest National, Brussels, Belgium", got.LocationAddress)
	})

	t.Run("find event detail reports not found", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		_, err := store.Catalog().FindEventDetail(ctx, criteria("No Such Show"))
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("find event detail reports duplicates as ambiguous", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertEvent(t, ctx, pool, "Twin Show", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)
		testutil.InsertEvent(t, ctx, pool, "Twin Show", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)

		_, err := store.Catalog().FindEventDetail(ctx, criteria("Twin Show"))
		require.ErrorIs(t, err, repository.ErrAmbiguous)
	})

	t.Run("end time is part of the match", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertEvent(t, ctx, pool, "Late Show", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)

		c := criteria("Late Show")
		c.EndAt = endAt.Add(time.Hour)
		_, err := store.Catalog().FindEventDetail(ctx, c)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list events filters by substrings and window", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertEvent(t, ctx, pool, "Summer Tour", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)
		testutil.InsertEvent(t, ctx, pool, "Winter Tour", "Migos",
			"Event Hall, New York, NY, USA", beginAt.AddDate(0, 5, 0), endAt.AddDate(0, 5, 0))

		all, err := store.Catalog().ListEvents(ctx, domain.EventFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		// ordered by begin time
		require.Equal(t, "Summer Tour", all[0].Title)

		byArtist, err := store.Catalog().ListEvents(ctx, domain.EventFilter{Artist: "migos"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, byArtist, 1)
		require.Equal(t, "Winter Tour", byArtist[0].Title)

		windowed, err := store.Catalog().ListEvents(ctx, domain.EventFilter{
			From: beginAt.AddDate(0, 1, 0),
		}, 10, 0)
		require.NoError(t, err)
		require.Len(t, windowed, 1)
		require.Equal(t, "Winter Tour", windowed[0].Title)

		paged, err := store.Catalog().ListEvents(ctx, domain.EventFilter{}, 1, 1)
		require.NoError(t, err)
		require.Len(t, paged, 1)
		require.Equal(t, "Winter Tour", paged[0].Title)
	})

	t.Run("update event patches only the given fields", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertEvent(t, ctx, pool, "Old Title", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)

		title := "New Title"
		require.NoError(t, store.Catalog().UpdateEvent(ctx, id, &title, nil))

		got, err := store.Catalog().GetEventDetail(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "New Title", got.Title)
		require.Equal(t, "Drake", got.ArtistName)

		require.NoError(t, store.Catalog().CreateArtists(ctx, []string{"Migos"}))
		artists, err := store.Catalog().ListArtists(ctx)
		require.NoError(t, err)
		var migosID int
		for _, a := range artists {
			if a.Name == "Migos" {
				migosID = a.ID
			}
		}
		require.NotZero(t, migosID)

		require.NoError(t, store.Catalog().UpdateEvent(ctx, id, nil, &migosID))

		got, err = store.Catalog().GetEventDetail(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "New Title", got.Title)
		require.Equal(t, "Migos", got.ArtistName)
	})

	t.Run("update event rejects unknown event and artist", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		id := testutil.InsertEvent(t, ctx, pool, "Patch Guard", "Drake",
			"Forest National, Brussels, Belgium", beginAt, endAt)

		title := "anything"
		require.ErrorIs(t, store.Catalog().UpdateEvent(ctx, id+1000, &title, nil),
			repository.ErrNotFound)

		missingArtist := 999999
		require.ErrorIs(t, store.Catalog().UpdateEvent(ctx, id, nil, &missingArtist),
			repository.ErrNotFound)
	})

	t.Run("seed inserts skip existing names", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		require.NoError(t, store.Catalog().CreateArtists(ctx, []string{"Drake", "Migos"}))
		require.NoError(t, store.Catalog().CreateArtists(ctx, []string{"Drake", "Eminem"}))

		artists, err := store.Catalog().ListArtists(ctx)
		require.NoError(t, err)
		require.Len(t, artists, 3)

		require.NoError(t, store.Catalog().CreateLocations(ctx, []string{"A", "B"}))
		require.NoError(t, store.Catalog().CreateLocations(ctx, []string{"B", "C"}))

		locations, err := store.Catalog().ListLocations(ctx)
		require.NoError(t, err)
		require.Len(t, locations, 3)
	})
}
