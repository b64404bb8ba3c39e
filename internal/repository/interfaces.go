package repository

import (
	"context"

	"premium_gallery/internal/domain/models"

	"github.com/google/uuid"
)

type GalleryRepository interface {
	CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error)
	GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error)
	GetGalleries(ctx context.Context, page, perPage int) ([]models.Gallery, int, error)
	DeleteGallery(ctx context.Context, id uuid.UUID) error
}

// GalleryItemTx операции над последовательностью позиций внутри транзакции галереи
type GalleryItemTx interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error)
	CountTopLevel(ctx context.Context, galleryID uuid.UUID) (int, error)
	TopLevelPositions(ctx context.Context, galleryID uuid.UUID) ([]int, error)
	Insert(ctx context.Context, item *models.GalleryItem) error
	ShiftPositionsAfter(ctx context.Context, galleryID uuid.UUID, position int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type GalleryItemRepository interface {
	// WithinGallery выполняет fn в транзакции, сериализованной по галерее
	WithinGallery(ctx context.Context, galleryID uuid.UUID, fn func(tx GalleryItemTx) error) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error)
	FindThumbnail(ctx context.Context, parentID uuid.UUID, variant string) (*models.GalleryItem, error)
	// CreateThumbnail вставляет миниатюру; если вариант уже есть, возвращает существующую запись
	CreateThumbnail(ctx context.Context, item *models.GalleryItem) (*models.GalleryItem, error)
	ListThumbnails(ctx context.Context, parentID uuid.UUID) ([]models.GalleryItem, error)
	ListTopLevel(ctx context.Context, galleryID uuid.UUID) ([]models.GalleryItem, error)
	CountTopLevel(ctx context.Context, galleryID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
