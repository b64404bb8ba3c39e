package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/repository"

	"github.com/google/uuid"
)

var ErrPositionIntegrity = errors.New("gallery positions are not contiguous")

// PositionManager поддерживает позиции элементов верхнего уровня в виде 1..count.
// Все методы вызываются внутри WithinGallery.
type PositionManager struct {
	log *slog.Logger
}

func NewPositionManager(log *slog.Logger) *PositionManager {
	return &PositionManager{log: log}
}

// AssignPosition ставит новый элемент в конец галереи. Миниатюры позиций не получают.
func (m *PositionManager) AssignPosition(ctx context.Context, tx repository.GalleryItemTx, item *models.GalleryItem) (int, error) {
	const op = "services.PositionManager.AssignPosition"

	if item.IsThumbnail() {
		item.Position = nil
		return 0, nil
	}

	count, err := tx.CountTopLevel(ctx, item.GalleryID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	position := count + 1
	item.Position = &position

	return position, nil
}

// CompactPositions закрывает дыру, которая останется после удаления removed
func (m *PositionManager) CompactPositions(ctx context.Context, tx repository.GalleryItemTx, removed *models.GalleryItem) error {
	const op = "services.PositionManager.CompactPositions"

	if removed.IsThumbnail() || removed.Position == nil {
		return nil
	}

	if err := tx.ShiftPositionsAfter(ctx, removed.GalleryID, *removed.Position); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *PositionManager) Verify(ctx context.Context, tx repository.GalleryItemTx, galleryID uuid.UUID) error {
	const op = "services.PositionManager.Verify"

	positions, err := tx.TopLevelPositions(ctx, galleryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for i, p := range positions {
		if p != i+1 {
			m.log.Error("gallery positions are broken",
				slog.String("op", op),
				slog.String("gallery_id", galleryID.String()),
				slog.Int("expected", i+1),
				slog.Int("actual", p),
			)
			return fmt.Errorf("%s: %w", op, ErrPositionIntegrity)
		}
	}

	return nil
}
