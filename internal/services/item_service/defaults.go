package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/logger/sl"
	"premium_gallery/internal/services/thumbnail"
)

// GenerateDefaults создает миниатюры из списка "name=WxH,..." для нового элемента.
// Ошибка одной записи не останавливает остальные, все ошибки объединяются.
func (s *ItemService) GenerateDefaults(ctx context.Context, item *models.GalleryItem, specSource string) ([]*models.GalleryItem, error) {
	const op = "services.ItemService.GenerateDefaults"

	if item.IsThumbnail() || !s.types.Thumbnailable(item.ContentType) {
		return nil, nil
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("item_id", item.ID.String()),
	)

	specs, skipped := thumbnail.ParseDefaultSpecs(specSource)
	for _, err := range skipped {
		log.Debug("skipping default thumbnail spec", sl.Err(err))
	}

	var (
		thumbs []*models.GalleryItem
		errs   []error
	)
	for _, spec := range specs {
		width, height := spec.Width, spec.Height

		thumb, err := s.Thumb(ctx, item, models.ThumbOptions{
			Width:  &width,
			Height: &height,
			Prefix: spec.Name,
		})
		if err != nil {
			log.Error("failed to generate default thumbnail", slog.String("spec", spec.Name), sl.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", spec.Name, err))
			continue
		}
		thumbs = append(thumbs, thumb)
	}

	if err := errors.Join(errs...); err != nil {
		return thumbs, fmt.Errorf("%s: %w", op, err)
	}

	return thumbs, nil
}

// GenerateConfiguredDefaults то же, что GenerateDefaults, со списком из конфигурации
func (s *ItemService) GenerateConfiguredDefaults(ctx context.Context, item *models.GalleryItem) ([]*models.GalleryItem, error) {
	return s.GenerateDefaults(ctx, item, s.cfg.DefaultThumbnails)
}
