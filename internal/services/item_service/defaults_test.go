package services

import (
	"context"
	"testing"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_GenerateDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.upload(t, "photo.png", testPNG(t, 400, 300))

	thumbs, err := env.svc.GenerateDefaults(ctx, item, "small=50x50,bad,large=200x200")
	require.NoError(t, err)
	require.Len(t, thumbs, 2)

	assert.Equal(t, "small_50x50", *thumbs[0].Variant)
	assert.Equal(t, 50, thumbs[0].Width)
	assert.Equal(t, 37, thumbs[0].Height)
	assert.Equal(t, "large_200x200", *thumbs[1].Variant)

	stored, err := env.svc.Thumbnails(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	t.Run("repeated expansion is idempotent", func(t *testing.T) {
		again, err := env.svc.GenerateConfiguredDefaults(ctx, item)
		require.NoError(t, err)
		require.Len(t, again, 2)
		assert.Equal(t, thumbs[0].ID, again[0].ID)

		stored, err := env.svc.Thumbnails(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})
}

func TestItemService_GenerateDefaultsSkips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("non-image item", func(t *testing.T) {
		item := env.upload(t, "a.pdf", []byte("%PDF"))

		thumbs, err := env.svc.GenerateDefaults(ctx, item, "small=50x50")
		require.NoError(t, err)
		assert.Empty(t, thumbs)
	})

	t.Run("thumbnail item", func(t *testing.T) {
		item := env.upload(t, "a.png", testPNG(t, 20, 20))
		thumb, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(10)})
		require.NoError(t, err)

		thumbs, err := env.svc.GenerateDefaults(ctx, thumb, "small=5x5")
		require.NoError(t, err)
		assert.Empty(t, thumbs)
	})

	t.Run("empty source", func(t *testing.T) {
		item := env.upload(t, "b.png", testPNG(t, 20, 20))

		thumbs, err := env.svc.GenerateDefaults(ctx, item, "  ")
		require.NoError(t, err)
		assert.Empty(t, thumbs)
	})
}

func TestItemService_GenerateDefaultsJoinsErrors(t *testing.T) {
	env := newTestEnv(t, withProcessor(func(p processor.Processor) processor.Processor {
		return failingProcessor{Processor: p}
	}))

	item := env.upload(t, "a.png", testPNG(t, 20, 20))

	thumbs, err := env.svc.GenerateDefaults(context.Background(), item, "small=5x5,large=10x10")
	assert.Empty(t, thumbs)
	assert.ErrorIs(t, err, ErrThumbnailGeneration)
	assert.ErrorContains(t, err, "small")
	assert.ErrorContains(t, err, "large")
}
