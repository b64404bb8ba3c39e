package services

import (
	"bytes"
	"context"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Thumb(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.upload(t, "landscape.png", testPNG(t, 192, 108))

	first, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(30), Prefix: "w"})
	require.NoError(t, err)

	t.Run("derived metadata", func(t *testing.T) {
		require.NotNil(t, first.ParentID)
		assert.Equal(t, item.ID, *first.ParentID)
		assert.Equal(t, item.GalleryID, first.GalleryID)
		assert.Nil(t, first.Position)
		require.NotNil(t, first.Variant)
		assert.Equal(t, "w_30x", *first.Variant)
		assert.Equal(t, "landscape_w_30x.png", first.Filename)
		assert.Equal(t, item.ContentType, first.ContentType)
		// 108 * 30 / 192 = 16.875 -> 16
		assert.Equal(t, 30, first.Width)
		assert.Equal(t, 16, first.Height)
		assert.Positive(t, first.Size)

		data, err := os.ReadFile(env.svc.FullPath(first, models.CanonicalView))
		require.NoError(t, err)
		assert.Len(t, data, int(first.Size))
	})

	t.Run("same options return the same record", func(t *testing.T) {
		again, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(30), Prefix: "w"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("different options create another record", func(t *testing.T) {
		other, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(60), Height: intPtr(60)})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, other.ID)

		thumbs, err := env.svc.Thumbnails(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, thumbs, 2)
	})

	t.Run("thumbnail of a thumbnail is itself", func(t *testing.T) {
		same, err := env.svc.Thumb(ctx, first, models.ThumbOptions{Width: intPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, first.ID, same.ID)
	})

	t.Run("no dimensions means the item itself", func(t *testing.T) {
		same, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Prefix: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, item.ID, same.ID)
	})

	t.Run("survives a cold cache", func(t *testing.T) {
		env.svc.thumbs.Forget(item.ID)

		again, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(30), Prefix: "w"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})
}

func TestFactory_NotThumbnailable(t *testing.T) {
	env := newTestEnv(t)

	item := env.upload(t, "report.pdf", []byte("%PDF-1.4"))

	same, err := env.svc.Thumb(context.Background(), item, models.ThumbOptions{Width: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, item.ID, same.ID)

	thumbs, err := env.svc.Thumbnails(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, thumbs)
}

func TestFactory_ConcurrentRequestsCreateOneRecord(t *testing.T) {
	env := newTestEnv(t)
	item := env.upload(t, "a.png", testPNG(t, 64, 64))

	const n = 10
	ids := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			thumb, err := env.svc.Thumb(context.Background(), item, models.ThumbOptions{Width: intPtr(16), Height: intPtr(16)})
			if assert.NoError(t, err) {
				ids[i] = thumb.ID.String()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}

	thumbs, err := env.svc.Thumbnails(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, thumbs, 1)
}

func TestFactory_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	var calls int32
	gate := gatedProcessor{started: make(chan struct{}), release: make(chan struct{}), calls: &calls}

	env := newTestEnv(t, withProcessor(func(p processor.Processor) processor.Processor {
		gate.Processor = p
		return gate
	}))
	item := env.upload(t, "a.png", testPNG(t, 64, 64))
	opts := models.ThumbOptions{Width: intPtr(16), Height: intPtr(16)}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := env.svc.Thumb(firstCtx, item, opts)
		firstErr <- err
	}()

	<-gate.started

	second := make(chan *models.GalleryItem, 1)
	secondErr := make(chan error, 1)
	go func() {
		thumb, err := env.svc.Thumb(context.Background(), item, opts)
		second <- thumb
		secondErr <- err
	}()

	// первый клиент ушел, пока миниатюра строится
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate.release)

	thumb := <-second
	require.NoError(t, <-secondErr)
	require.NotNil(t, thumb)
	assert.Equal(t, 16, thumb.Width)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	thumbs, err := env.svc.Thumbnails(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, thumbs, 1)
}

func TestFactory_ProcessorFailure(t *testing.T) {
	env := newTestEnv(t, withProcessor(func(p processor.Processor) processor.Processor {
		return failingProcessor{Processor: p}
	}))
	ctx := context.Background()

	item := env.upload(t, "a.png", testPNG(t, 32, 32))

	_, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(8)})
	assert.ErrorIs(t, err, ErrThumbnailGeneration)

	thumbs, err := env.svc.Thumbnails(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, thumbs)

	variant := models.NamedVariant("8x")
	_, err = os.Stat(env.svc.FullPath(item, variant))
	assert.True(t, os.IsNotExist(err))
}

func TestFactory_InvalidBounds(t *testing.T) {
	env := newTestEnv(t)

	item := env.upload(t, "a.png", testPNG(t, 32, 32))

	_, err := env.svc.Thumb(context.Background(), item, models.ThumbOptions{Width: intPtr(0), Height: intPtr(10)})
	assert.Error(t, err)
}

func TestFactory_ExifRotatedSourceKeepsAspect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// в файле 200x100, Orientation=6: снимок портретный
	item := env.upload(t, "camera.jpg", orientedJPEG(t, 200, 100, 6))
	assert.Equal(t, 100, item.Width)
	assert.Equal(t, 200, item.Height)

	thumb, err := env.svc.Thumb(ctx, item, models.ThumbOptions{Width: intPtr(50), Height: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 25, thumb.Width)
	assert.Equal(t, 50, thumb.Height)

	data, err := os.ReadFile(env.svc.FullPath(thumb, models.CanonicalView))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}
