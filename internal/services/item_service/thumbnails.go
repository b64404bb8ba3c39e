package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/contenttype"
	"premium_gallery/internal/lib/locker"
	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/metrics"
	"premium_gallery/internal/processor"
	"premium_gallery/internal/repository"
	"premium_gallery/internal/services/thumbnail"
	"premium_gallery/internal/storage"
	filestorage "premium_gallery/internal/storage/filestorage"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

var ErrThumbnailGeneration = errors.New("thumbnail generation failed")

const (
	defaultProcessorTimeout = 30 * time.Second
	// createMargin запас сверх таймаута процессора на блокировку, чтение и запись файлов
	createMargin = 30 * time.Second
)

// Factory находит или создает миниатюру (parent, variant) ровно один раз
type Factory struct {
	log       *slog.Logger
	items     repository.GalleryItemRepository
	files     filestorage.FileStorage
	processor processor.Processor
	types     *contenttype.Registry
	locker    locker.Locker
	cache     *cache.Cache
	group     singleflight.Group
	timeout   time.Duration
	paths     func(item *models.GalleryItem, variant models.Variant) string
}

func NewFactory(
	log *slog.Logger,
	items repository.GalleryItemRepository,
	files filestorage.FileStorage,
	proc processor.Processor,
	types *contenttype.Registry,
	lk locker.Locker,
	timeout time.Duration,
	paths func(item *models.GalleryItem, variant models.Variant) string,
) *Factory {
	if timeout <= 0 {
		timeout = defaultProcessorTimeout
	}

	return &Factory{
		log:       log,
		items:     items,
		files:     files,
		processor: proc,
		types:     types,
		locker:    lk,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		timeout:   timeout,
		paths:     paths,
	}
}

// Thumb возвращает миниатюру элемента с запрошенными размерами.
// Для нетумбнейлируемых элементов, миниатюр и запроса без размеров возвращается сам item.
func (f *Factory) Thumb(ctx context.Context, item *models.GalleryItem, opts models.ThumbOptions) (*models.GalleryItem, error) {
	const op = "services.Factory.Thumb"

	if item.IsThumbnail() || !f.types.Thumbnailable(item.ContentType) {
		metrics.ThumbnailLookups.WithLabelValues("passthrough").Inc()
		return item, nil
	}

	variant := thumbnail.ResolveVariant(opts.Width, opts.Height, opts.Prefix)
	if variant.IsCanonical() {
		metrics.ThumbnailLookups.WithLabelValues("passthrough").Inc()
		return item, nil
	}

	log := f.log.With(
		slog.String("op", op),
		slog.String("item_id", item.ID.String()),
		slog.String("variant", variant.Key()),
	)

	if existing, ok := f.cached(item.ID, variant); ok {
		metrics.ThumbnailLookups.WithLabelValues("cache").Inc()
		log.Debug("thumbnail already exists")
		return existing, nil
	}

	existing, err := f.find(ctx, item.ID, variant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		metrics.ThumbnailLookups.WithLabelValues("db").Inc()
		log.Debug("thumbnail already exists")
		return existing, nil
	}

	// создание общее для всех ждущих запросов и не должно обрываться,
	// если отключился тот, кто пришел первым
	ch := f.group.DoChan(cacheKey(item.ID, variant), func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout+createMargin)
		defer cancel()

		return f.create(cctx, log, item, variant, opts)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%s: %w", op, res.Err)
	}

	thumb := *res.Val.(*models.GalleryItem)
	return &thumb, nil
}

// create выполняется под блокировкой (parent, variant), повторно проверяя наличие записи
func (f *Factory) create(ctx context.Context, log *slog.Logger, item *models.GalleryItem, variant models.Variant, opts models.ThumbOptions) (*models.GalleryItem, error) {
	unlock, err := f.locker.Lock(ctx, "thumb:"+cacheKey(item.ID, variant))
	if err != nil {
		return nil, fmt.Errorf("failed to lock variant: %w", err)
	}
	defer unlock()

	existing, err := f.find(ctx, item.ID, variant)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.ThumbnailLookups.WithLabelValues("db").Inc()
		log.Debug("thumbnail already exists")
		return existing, nil
	}

	src, err := f.files.Read(ctx, f.paths(item, models.CanonicalView))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	srcWidth, srcHeight := item.Width, item.Height
	if srcWidth <= 0 || srcHeight <= 0 {
		if srcWidth, srcHeight, err = f.processor.Dimensions(src); err != nil {
			metrics.ThumbnailFailures.Inc()
			return nil, fmt.Errorf("%w: %w", ErrThumbnailGeneration, err)
		}
	}

	width, height, err := thumbnail.ProportionalResize(srcWidth, srcHeight, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	data, err := f.resample(ctx, src, width, height)
	if err != nil {
		metrics.ThumbnailFailures.Inc()
		log.Error("failed to generate thumbnail", sl.Err(err))
		return nil, err
	}

	key := variant.Key()
	parentID := item.ID
	now := time.Now().UTC()
	thumb := &models.GalleryItem{
		ID:          uuid.New(),
		GalleryID:   item.GalleryID,
		ParentID:    &parentID,
		Variant:     &key,
		Name:        item.Name,
		Filename:    models.VariantFilename(item.Filename, variant),
		Extension:   item.Extension,
		ContentType: item.ContentType,
		Width:       width,
		Height:      height,
		Size:        int64(len(data)),
		CreatedBy:   item.CreatedBy,
		UpdatedBy:   item.UpdatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := thumb.Validate(); err != nil {
		return nil, err
	}

	path := f.paths(item, variant)
	if _, err := f.files.Store(ctx, data, thumb.ContentType, path); err != nil {
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	created, err := f.items.CreateThumbnail(ctx, thumb)
	if err != nil {
		if delErr := f.files.Delete(ctx, path); delErr != nil {
			log.Warn("failed to remove orphaned thumbnail file", sl.Err(delErr))
		}
		return nil, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	f.remember(created)
	metrics.ThumbnailLookups.WithLabelValues("created").Inc()
	log.Info("thumbnail created",
		slog.String("thumbnail_id", created.ID.String()),
		slog.Int("width", width),
		slog.Int("height", height),
	)

	return created, nil
}

// resample вызывает процессор с ограничением по времени
func (f *Factory) resample(ctx context.Context, src []byte, width, height int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	data, err := f.processor.Resample(ctx, src, width, height)
	metrics.ThumbnailGenerationDuration.WithLabelValues(f.processor.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrThumbnailGeneration, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: processor returned no data", ErrThumbnailGeneration)
	}

	return data, nil
}

// find ищет вариант в репозитории; nil без ошибки означает отсутствие
func (f *Factory) find(ctx context.Context, parentID uuid.UUID, variant models.Variant) (*models.GalleryItem, error) {
	thumb, err := f.items.FindThumbnail(ctx, parentID, variant.Key())
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}

	f.remember(thumb)
	return thumb, nil
}

func (f *Factory) cached(parentID uuid.UUID, variant models.Variant) (*models.GalleryItem, bool) {
	v, ok := f.cache.Get(cacheKey(parentID, variant))
	if !ok {
		return nil, false
	}

	thumb := *v.(*models.GalleryItem)
	return &thumb, true
}

func (f *Factory) remember(thumb *models.GalleryItem) {
	if thumb.ParentID == nil || thumb.Variant == nil {
		return
	}

	cp := *thumb
	f.cache.SetDefault(cacheKey(*thumb.ParentID, models.NamedVariant(*thumb.Variant)), &cp)
}

// Forget убирает из кэша все варианты элемента
func (f *Factory) Forget(parentID uuid.UUID) {
	prefix := parentID.String() + ":"
	for key := range f.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			f.cache.Delete(key)
		}
	}
}

func cacheKey(parentID uuid.UUID, variant models.Variant) string {
	return parentID.String() + ":" + variant.Key()
}
