package models

import (
	"time"

	"github.com/google/uuid"
)

// Gallery представляет собой модель галереи
type Gallery struct {
	ID          uuid.UUID `json:"id"`          // Уникальный идентификатор галереи
	Title       string    `json:"title"`       // Заголовок галереи
	Slug        string    `json:"slug"`        // Уникальный URL-идентификатор
	Description string    `json:"description"` // Описание галереи
	CreatedAt   time.Time `json:"created_at"`  // Дата создания
	UpdatedAt   time.Time `json:"updated_at"`  // Дата последнего обновления
}
