package dto

import (
	"time"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/services/thumbnail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TagVariantPrefix тег валидатора для префикса миниатюры
const TagVariantPrefix = "variant_prefix"

// RegisterValidations добавляет в валидатор теги, которые используют DTO
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation(TagVariantPrefix, func(fl validator.FieldLevel) bool {
		return thumbnail.ValidPrefix(fl.Field().String())
	})
}

// ItemResponse элемент галереи или его миниатюра
type ItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	GalleryID   uuid.UUID  `json:"gallery_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Variant     *string    `json:"variant,omitempty"`
	Position    *int       `json:"position,omitempty"`
	Name        string     `json:"name"`
	Filename    string     `json:"filename"`
	Extension   string     `json:"extension"`
	ContentType string     `json:"content_type"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Size        int64      `json:"size"`
	URL         string     `json:"url"`
	CreatedAt   time.Time  `json:"created_at"`
}

type UploadItemResponse struct {
	Item       ItemResponse   `json:"item"`
	Thumbnails []ItemResponse `json:"thumbnails"`
	// Warning заполняется, если часть миниатюр по умолчанию не создалась
	Warning string `json:"warning,omitempty"`
}

// ThumbQuery параметры GET /items/:id/thumb
type ThumbQuery struct {
	Width  *int   `query:"width" validate:"omitempty,min=1,max=10000"`
	Height *int   `query:"height" validate:"omitempty,min=1,max=10000"`
	Prefix string `query:"prefix" validate:"omitempty,max=64,variant_prefix"`
}

func (q ThumbQuery) Options() models.ThumbOptions {
	return models.ThumbOptions{
		Width:  q.Width,
		Height: q.Height,
		Prefix: q.Prefix,
	}
}

type PathResponse struct {
	Variant string `json:"variant"`
	Path    string `json:"path"`
	URL     string `json:"url"`
}

type LastInPositionResponse struct {
	Last     bool `json:"last"`
	Position *int `json:"position,omitempty"`
}

// NewItemResponse url строится снаружи, сервис про адреса не знает
func NewItemResponse(item *models.GalleryItem, url string) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		GalleryID:   item.GalleryID,
		ParentID:    item.ParentID,
		Variant:     item.Variant,
		Position:    item.Position,
		Name:        item.Name,
		Filename:    item.Filename,
		Extension:   item.Extension,
		ContentType: item.ContentType,
		Width:       item.Width,
		Height:      item.Height,
		Size:        item.Size,
		URL:         url,
		CreatedAt:   item.CreatedAt,
	}
}

// CreateItemInput загруженный файл для Create
type CreateItemInput struct {
	GalleryID   uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
	CreatedBy   *uuid.UUID
}
