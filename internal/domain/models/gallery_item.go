package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GalleryItem представляет загруженный файл галереи либо его миниатюру.
// У элементов верхнего уровня ParentID == nil и есть Position,
// у миниатюр заполнены ParentID и Variant, а Position == nil.
type GalleryItem struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	GalleryID   uuid.UUID  `json:"gallery_id" db:"gallery_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Variant     *string    `json:"variant,omitempty" db:"variant"`
	Position    *int       `json:"position,omitempty" db:"position"`
	Name        string     `json:"name" db:"name"`
	Filename    string     `json:"filename" db:"filename"`
	Extension   string     `json:"extension" db:"extension"`
	ContentType string     `json:"content_type" db:"content_type"`
	Width       int        `json:"width" db:"width"`
	Height      int        `json:"height" db:"height"`
	Size        int64      `json:"size" db:"size"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy   *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsThumbnail сообщает, является ли элемент производной миниатюрой
func (i *GalleryItem) IsThumbnail() bool {
	return i.ParentID != nil
}

// PartitionID возвращает id, по которому раскладываются файлы на диске:
// миниатюры лежат рядом с исходным элементом.
func (i *GalleryItem) PartitionID() uuid.UUID {
	if i.ParentID != nil {
		return *i.ParentID
	}
	return i.ID
}

// NewGalleryItem создает элемент верхнего уровня и выводит имя и расширение из имени файла
func NewGalleryItem(galleryID uuid.UUID, filename, contentType string, createdBy *uuid.UUID) *GalleryItem {
	now := time.Now().UTC()

	return &GalleryItem{
		ID:          uuid.New(),
		GalleryID:   galleryID,
		Name:        NameFromFilename(filename),
		Filename:    filename,
		Extension:   ExtensionFromFilename(filename),
		ContentType: contentType,
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NameFromFilename отрезает расширение: "photo.large.jpg" -> "photo.large"
func NameFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// ExtensionFromFilename возвращает последний сегмент после точки в нижнем регистре.
// Имя без точки целиком считается расширением.
func ExtensionFromFilename(filename string) string {
	parts := strings.Split(filename, ".")
	return strings.ToLower(parts[len(parts)-1])
}

// VariantFilename строит имя файла миниатюры: "photo.jpg" + "sq_100x100" -> "photo_sq_100x100.jpg"
func VariantFilename(filename string, variant Variant) string {
	if variant.IsCanonical() {
		return filename
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return base + "_" + variant.Key() + ext
}

// Validate проверяет обязательные поля элемента
func (i *GalleryItem) Validate() error {
	var validationErrors []string

	if i.GalleryID == uuid.Nil {
		validationErrors = append(validationErrors, "gallery ID is required")
	}
	if i.Filename == "" {
		validationErrors = append(validationErrors, "filename is required")
	}
	if len(i.Filename) > 255 {
		validationErrors = append(validationErrors, "filename must be 255 characters or less")
	}
	if i.ContentType == "" {
		validationErrors = append(validationErrors, "content type is required")
	}
	if i.Width < 0 || i.Height < 0 {
		validationErrors = append(validationErrors, "width and height must not be negative")
	}

	if i.IsThumbnail() {
		if i.Variant == nil || *i.Variant == "" {
			validationErrors = append(validationErrors, "thumbnail variant is required")
		}
		if i.Position != nil {
			validationErrors = append(validationErrors, "thumbnail must not have a position")
		}
	} else if i.Variant != nil {
		validationErrors = append(validationErrors, "top-level item must not have a variant")
	}

	if len(validationErrors) > 0 {
		return &ItemValidationError{
			Errors: validationErrors,
		}
	}

	return nil
}

// ItemValidationError кастомный тип ошибки для валидации
type ItemValidationError struct {
	Errors []string
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("gallery item validation failed: %s", strings.Join(e.Errors, "; "))
}

// IsItemValidationError проверяет, является ли ошибка ошибкой валидации
func IsItemValidationError(err error) bool {
	_, ok := err.(*ItemValidationError)
	return ok
}

// ThumbOptions параметры запрошенной миниатюры. Пустые Width и Height
// означают исходный (канонический) элемент.
type ThumbOptions struct {
	Width  *int
	Height *int
	Prefix string
}
