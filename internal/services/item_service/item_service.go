package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/contenttype"
	"premium_gallery/internal/lib/locker"
	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/metrics"
	"premium_gallery/internal/processor"
	"premium_gallery/internal/repository"
	filestorage "premium_gallery/internal/storage/filestorage"
	"premium_gallery/internal/transport/http/dto"

	"github.com/google/uuid"
)

// Config параметры галереи из секции gallery конфигурации
type Config struct {
	PathPrefix        string
	DefaultThumbnails string
	ProcessorTimeout  time.Duration
}

type ItemService struct {
	log       *slog.Logger
	galleries repository.GalleryRepository
	items     repository.GalleryItemRepository
	files     filestorage.FileStorage
	processor processor.Processor
	types     *contenttype.Registry
	locker    locker.Locker
	positions *PositionManager
	thumbs    *Factory
	cfg       Config
}

func NewItemService(
	log *slog.Logger,
	galleries repository.GalleryRepository,
	items repository.GalleryItemRepository,
	files filestorage.FileStorage,
	proc processor.Processor,
	types *contenttype.Registry,
	lk locker.Locker,
	cfg Config,
) *ItemService {
	s := &ItemService{
		log:       log,
		galleries: galleries,
		items:     items,
		files:     files,
		processor: proc,
		types:     types,
		locker:    lk,
		positions: NewPositionManager(log),
		cfg:       cfg,
	}
	s.thumbs = NewFactory(log, items, files, proc, types, lk, cfg.ProcessorTimeout, s.StoragePath)

	return s
}

// Create сохраняет запись элемента в конец галереи, затем его файл
func (s *ItemService) Create(ctx context.Context, input dto.CreateItemInput) (*models.GalleryItem, error) {
	const op = "services.ItemService.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", input.GalleryID.String()),
		slog.String("filename", input.Filename),
	)

	log.Info("creating gallery item")

	if _, err := s.galleries.GetGalleryByID(ctx, input.GalleryID); err != nil {
		log.Error("gallery lookup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = s.types.ContentType(models.ExtensionFromFilename(input.Filename))
	}

	item := models.NewGalleryItem(input.GalleryID, input.Filename, contentType, input.CreatedBy)
	item.Size = int64(len(input.Data))

	if s.types.Thumbnailable(contentType) {
		width, height, err := s.processor.Dimensions(input.Data)
		if err != nil {
			log.Warn("failed to read image dimensions", sl.Err(err))
		} else {
			item.Width, item.Height = width, height
		}
	}

	if err := item.Validate(); err != nil {
		log.Error("gallery item validation failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.withinGallery(ctx, item.GalleryID, func(tx repository.GalleryItemTx) error {
		if _, err := s.positions.AssignPosition(ctx, tx, item); err != nil {
			return err
		}
		if err := tx.Insert(ctx, item); err != nil {
			return err
		}
		return s.positions.Verify(ctx, tx, item.GalleryID)
	})
	if err != nil {
		log.Error("failed to save gallery item", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.files.Store(ctx, input.Data, contentType, s.StoragePath(item, models.CanonicalView)); err != nil {
		log.Error("failed to store attachment, rolling back record", sl.Err(err))

		// запись без файла не нужна, убираем ее вместе с позицией
		if destroyErr := s.destroyRecord(ctx, item); destroyErr != nil {
			log.Error("failed to remove record after storage failure", sl.Err(destroyErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.GalleryItemsCreated.Inc()
	log.Info("gallery item created",
		slog.String("id", item.ID.String()),
		slog.Int("position", *item.Position),
	)

	return item, nil
}

// Destroy удаляет элемент. Для элемента верхнего уровня позиции соседей сдвигаются,
// миниатюры удаляются каскадно. Файлы удаляются после фиксации транзакции.
func (s *ItemService) Destroy(ctx context.Context, item *models.GalleryItem) error {
	const op = "services.ItemService.Destroy"

	log := s.log.With(
		slog.String("op", op),
		slog.String("id", item.ID.String()),
	)

	var thumbs []models.GalleryItem
	if !item.IsThumbnail() {
		var err error
		if thumbs, err = s.items.ListThumbnails(ctx, item.ID); err != nil {
			log.Error("failed to list thumbnails", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.destroyRecord(ctx, item); err != nil {
		log.Error("failed to delete gallery item", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if item.IsThumbnail() {
		s.thumbs.Forget(*item.ParentID)
		s.removeFile(ctx, log, s.parentPath(item))
	} else {
		s.thumbs.Forget(item.ID)
		s.removeFile(ctx, log, s.StoragePath(item, models.CanonicalView))
		for i := range thumbs {
			s.removeFile(ctx, log, s.parentPath(&thumbs[i]))
		}
	}

	metrics.GalleryItemsDestroyed.Add(float64(1 + len(thumbs)))
	log.Info("gallery item destroyed", slog.Int("thumbnails", len(thumbs)))

	return nil
}

func (s *ItemService) destroyRecord(ctx context.Context, item *models.GalleryItem) error {
	if item.IsThumbnail() {
		return s.items.Delete(ctx, item.ID)
	}

	return s.withinGallery(ctx, item.GalleryID, func(tx repository.GalleryItemTx) error {
		// позиция могла измениться с момента чтения item
		current, err := tx.FindByID(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := s.positions.CompactPositions(ctx, tx, current); err != nil {
			return err
		}
		if err := tx.Delete(ctx, current.ID); err != nil {
			return err
		}
		return s.positions.Verify(ctx, tx, current.GalleryID)
	})
}

// withinGallery сериализует изменения позиций галереи: сначала Locker, затем транзакция
func (s *ItemService) withinGallery(ctx context.Context, galleryID uuid.UUID, fn func(tx repository.GalleryItemTx) error) error {
	unlock, err := s.locker.Lock(ctx, "gallery:"+galleryID.String()+":positions")
	if err != nil {
		return fmt.Errorf("failed to lock gallery positions: %w", err)
	}
	defer unlock()

	return s.items.WithinGallery(ctx, galleryID, fn)
}

func (s *ItemService) removeFile(ctx context.Context, log *slog.Logger, p string) {
	if err := s.files.Delete(ctx, p); err != nil {
		log.Warn("failed to remove attachment", slog.String("path", p), sl.Err(err))
	}
}

// Thumb см. Factory.Thumb
func (s *ItemService) Thumb(ctx context.Context, item *models.GalleryItem, opts models.ThumbOptions) (*models.GalleryItem, error) {
	return s.thumbs.Thumb(ctx, item, opts)
}

// FullPath полный путь к файлу элемента или его варианта в хранилище
func (s *ItemService) FullPath(item *models.GalleryItem, variant models.Variant) string {
	return s.files.GetFullPath(s.StoragePath(item, variant))
}

// StoragePath относительный путь: {prefix}/{gallery}/{p1}/{p2}/{filename},
// где p1/p2 первые восемь hex-символов id элемента верхнего уровня.
func (s *ItemService) StoragePath(item *models.GalleryItem, variant models.Variant) string {
	id := strings.ReplaceAll(item.PartitionID().String(), "-", "")

	return path.Join(
		s.cfg.PathPrefix,
		item.GalleryID.String(),
		id[0:4],
		id[4:8],
		models.VariantFilename(item.Filename, variant),
	)
}

// URL публичный адрес файла элемента или варианта
func (s *ItemService) URL(item *models.GalleryItem, variant models.Variant) string {
	return strings.TrimSuffix(s.files.BaseURL(), "/") + "/" + s.StoragePath(item, variant)
}

// parentPath путь файла миниатюры, она лежит рядом с исходным элементом
func (s *ItemService) parentPath(thumb *models.GalleryItem) string {
	return s.StoragePath(thumb, models.CanonicalView)
}

// LastInPosition сообщает, стоит ли элемент последним в своей галерее
func (s *ItemService) LastInPosition(ctx context.Context, item *models.GalleryItem) (bool, error) {
	const op = "services.ItemService.LastInPosition"

	if item.Position == nil {
		return false, nil
	}

	count, err := s.items.CountTopLevel(ctx, item.GalleryID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return *item.Position == count, nil
}

func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	const op = "services.ItemService.Get"

	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// ListGallery элементы верхнего уровня по порядку позиций
func (s *ItemService) ListGallery(ctx context.Context, galleryID uuid.UUID) ([]models.GalleryItem, error) {
	const op = "services.ItemService.ListGallery"

	if _, err := s.galleries.GetGalleryByID(ctx, galleryID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := s.items.ListTopLevel(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *ItemService) Thumbnails(ctx context.Context, id uuid.UUID) ([]models.GalleryItem, error) {
	const op = "services.ItemService.Thumbnails"

	thumbs, err := s.items.ListThumbnails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return thumbs, nil
}

// DestroyGalleryFiles удаляет файлы всех элементов галереи; записи удаляет каскад
func (s *ItemService) DestroyGalleryFiles(ctx context.Context, galleryID uuid.UUID) error {
	const op = "services.ItemService.DestroyGalleryFiles"

	log := s.log.With(slog.String("op", op), slog.String("gallery_id", galleryID.String()))

	items, err := s.items.ListTopLevel(ctx, galleryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var errs []error
	for i := range items {
		thumbs, err := s.items.ListThumbnails(ctx, items[i].ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.thumbs.Forget(items[i].ID)
		s.removeFile(ctx, log, s.StoragePath(&items[i], models.CanonicalView))
		for j := range thumbs {
			s.removeFile(ctx, log, s.parentPath(&thumbs[j]))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
