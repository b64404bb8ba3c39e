package services

import (
	"context"
	"testing"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/logger/handlers/slogdiscard"
	"premium_gallery/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionManager(t *testing.T) {
	ctx := context.Background()
	repo := newMemItemRepo()
	pm := NewPositionManager(slogdiscard.NewDiscardLogger())
	galleryID := uuid.New()

	appendItem := func() *models.GalleryItem {
		item := models.NewGalleryItem(galleryID, "a.png", "image/png", nil)
		err := repo.WithinGallery(ctx, galleryID, func(tx repository.GalleryItemTx) error {
			if _, err := pm.AssignPosition(ctx, tx, item); err != nil {
				return err
			}
			return tx.Insert(ctx, item)
		})
		require.NoError(t, err)
		return item
	}

	first := appendItem()
	second := appendItem()
	assert.Equal(t, 1, *first.Position)
	assert.Equal(t, 2, *second.Position)

	t.Run("thumbnails get no position", func(t *testing.T) {
		variant := "x"
		thumb := models.NewGalleryItem(galleryID, "a_x.png", "image/png", nil)
		thumb.ParentID = &first.ID
		thumb.Variant = &variant

		err := repo.WithinGallery(ctx, galleryID, func(tx repository.GalleryItemTx) error {
			p, err := pm.AssignPosition(ctx, tx, thumb)
			assert.Zero(t, p)
			return err
		})
		require.NoError(t, err)
		assert.Nil(t, thumb.Position)
	})

	t.Run("verify detects a gap", func(t *testing.T) {
		broken := models.NewGalleryItem(galleryID, "b.png", "image/png", nil)
		position := 5
		broken.Position = &position

		err := repo.WithinGallery(ctx, galleryID, func(tx repository.GalleryItemTx) error {
			if err := tx.Insert(ctx, broken); err != nil {
				return err
			}
			return pm.Verify(ctx, tx, galleryID)
		})
		assert.ErrorIs(t, err, ErrPositionIntegrity)

		// транзакция откатилась
		count, err := repo.CountTopLevel(ctx, galleryID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("compact then delete", func(t *testing.T) {
		err := repo.WithinGallery(ctx, galleryID, func(tx repository.GalleryItemTx) error {
			if err := pm.CompactPositions(ctx, tx, first); err != nil {
				return err
			}
			if err := tx.Delete(ctx, first.ID); err != nil {
				return err
			}
			return pm.Verify(ctx, tx, galleryID)
		})
		require.NoError(t, err)

		moved, err := repo.FindByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, *moved.Position)
	})
}
