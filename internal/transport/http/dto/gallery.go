package dto

import (
	"time"

	"github.com/google/uuid"
)

// GalleryResponse представляет собой DTO для ответа с данными о галерее
type GalleryResponse struct {
	ID          uuid.UUID `json:"id"`          // Уникальный идентификатор галереи
	Title       string    `json:"title"`       // Название галереи
	Slug        string    `json:"slug"`        // Уникальный URL-идентификатор галереи
	Description string    `json:"description"` // Описание галереи
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateGalleryRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"omitempty,max=255"`
	Description string `json:"description"`
}

type GalleryListResponse struct {
	Galleries []GalleryResponse `json:"galleries"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}
