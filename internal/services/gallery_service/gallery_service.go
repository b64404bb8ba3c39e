package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/repository"
	"premium_gallery/internal/transport/http/dto"

	"github.com/google/uuid"
)

var ErrTitleRequired = errors.New("title is required")

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileCleaner удаляет файлы элементов галереи перед удалением записей
type FileCleaner interface {
	DestroyGalleryFiles(ctx context.Context, galleryID uuid.UUID) error
}

type GalleryService struct {
	log     *slog.Logger
	repo    repository.GalleryRepository
	cleaner FileCleaner
}

func NewGalleryService(log *slog.Logger, repo repository.GalleryRepository, cleaner FileCleaner) *GalleryService {
	return &GalleryService{
		log:     log,
		repo:    repo,
		cleaner: cleaner,
	}
}

// CreateGallery создает новую галерею
func (s *GalleryService) CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (uuid.UUID, error) {
	const op = "service.GalleryService.CreateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("title", req.Title),
	)

	log.Info("creating gallery")

	title := strings.TrimSpace(req.Title)
	if title == "" {
		log.Error("title is required")
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTitleRequired)
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(title)
	}

	gallery := models.Gallery{
		Title:       title,
		Slug:        slug,
		Description: req.Description,
	}

	id, err := s.repo.CreateGallery(ctx, gallery)
	if err != nil {
		log.Error("failed to create gallery", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery created successfully", slog.String("id", id.String()))
	return id, nil
}

// DeleteGallery удаляет галерею: сначала файлы, затем записи (каскадом)
func (s *GalleryService) DeleteGallery(ctx context.Context, id uuid.UUID) error {
	const op = "service.GalleryService.DeleteGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id.String()),
	)

	log.Info("deleting gallery")

	if _, err := s.repo.GetGalleryByID(ctx, id); err != nil {
		log.Error("failed to get gallery", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cleaner != nil {
		if err := s.cleaner.DestroyGalleryFiles(ctx, id); err != nil {
			// записи все равно удаляем, осиротевшие файлы только в логе
			log.Warn("failed to remove gallery files", sl.Err(err))
		}
	}

	if err := s.repo.DeleteGallery(ctx, id); err != nil {
		log.Error("failed to delete gallery", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery deleted successfully")
	return nil
}

// GetGalleryByID возвращает галерею по ID
func (s *GalleryService) GetGalleryByID(ctx context.Context, id uuid.UUID) (*dto.GalleryResponse, error) {
	const op = "service.GalleryService.GetGalleryByID"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id.String()),
	)

	log.Debug("getting gallery")

	gallery, err := s.repo.GetGalleryByID(ctx, id)
	if err != nil {
		log.Error("failed to get gallery", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.mapToGalleryResponse(gallery), nil
}

// GetGalleries возвращает список галерей с пагинацией
func (s *GalleryService) GetGalleries(ctx context.Context, page, perPage int) ([]dto.GalleryResponse, int, error) {
	const op = "service.GalleryService.GetGalleries"
	log := s.log.With(
		slog.String("op", op),
		slog.Int("page", page),
		slog.Int("per_page", perPage),
	)

	log.Debug("getting galleries")

	galleries, total, err := s.repo.GetGalleries(ctx, page, perPage)
	if err != nil {
		log.Error("failed to get galleries", sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	// Преобразуем модели в DTO
	galleryResponses := make([]dto.GalleryResponse, 0, len(galleries))
	for _, gallery := range galleries {
		galleryResponses = append(galleryResponses, *s.mapToGalleryResponse(gallery))
	}

	return galleryResponses, total, nil
}

// Slugify "Summer Trip 2024!" -> "summer-trip-2024"
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	return slug
}

// mapToGalleryResponse преобразует модель галереи в DTO
func (s *GalleryService) mapToGalleryResponse(gallery models.Gallery) *dto.GalleryResponse {
	return &dto.GalleryResponse{
		ID:          gallery.ID,
		Title:       gallery.Title,
		Slug:        gallery.Slug,
		Description: gallery.Description,
		CreatedAt:   gallery.CreatedAt,
		UpdatedAt:   gallery.UpdatedAt,
	}
}
