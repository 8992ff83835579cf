package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"sanfish/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryStoreRollsBackFailedTransaction(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		rec := models.FishRecord{OwnerID: primitive.NewObjectID()}
		require.NoError(t, tx.InsertFish(ctx, &rec))
		require.NoError(t, tx.InsertDiseases(ctx, []models.Disease{{FishRecordID: rec.ID, DiseaseName: "ich"}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx Tx) error {
		n, err := tx.CountFish(ctx, FishFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
		d, err := tx.CountDiseases(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, d)
		return nil
	}))
}

func TestMemoryStoreCommitsAfterContextCancelled(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		sp := models.Species{ScientificName: "Sparus aurata"}
		require.NoError(t, tx.InsertSpecies(ctx, &sp))
		cancel()
		return nil
	}))

	require.NoError(t, s.View(context.Background(), func(ctx context.Context, tx Tx) error {
		_, total, err := tx.ListSpecies(ctx, SpeciesFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		return nil
	}))
}

func TestMemoryStoreReplaceFishChecksVersion(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	var rec models.FishRecord
	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertFish(ctx, &rec)
	}))
	assert.EqualValues(t, 1, rec.Version)
	assert.Equal(t, now, rec.CreatedAt)

	stale := rec
	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceFish(ctx, &rec)
	}))
	assert.EqualValues(t, 2, rec.Version)

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceFish(ctx, &stale)
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	missing := models.FishRecord{ID: primitive.NewObjectID()}
	err = s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.ReplaceFish(ctx, &missing)
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSpeciesUniqueness(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		a := models.Species{ScientificName: "Sparus aurata", Family: "Sparidae"}
		require.NoError(t, tx.InsertSpecies(ctx, &a))
		b := models.Species{ScientificName: "Sparus aurata"}
		return tx.InsertSpecies(ctx, &b)
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStoreListFishFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, tx Tx) error {
		for i, country := range []string{"TR", "GR", "TR"} {
			rec := models.FishRecord{
				OwnerID:   owner,
				CatchDate: base.AddDate(0, 0, i),
				Location:  models.Location{Country: country},
				Status:    models.FishStatusActive,
			}
			if err := tx.InsertFish(ctx, &rec); err != nil {
				return err
			}
		}
		other := models.FishRecord{OwnerID: primitive.NewObjectID(), Location: models.Location{Country: "TR"}}
		return tx.InsertFish(ctx, &other)
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx Tx) error {
		recs, total, err := tx.ListFish(ctx, FishFilter{OwnerID: &owner, Country: "TR"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, recs, 2)
		assert.True(t, recs[0].CatchDate.After(recs[1].CatchDate))

		st, err := tx.FishStats(ctx, &owner)
		require.NoError(t, err)
		assert.EqualValues(t, 3, st.Total)
		assert.Equal(t, Bucket{Key: "TR", Count: 2}, st.ByCountry[0])
		return nil
	}))
}
