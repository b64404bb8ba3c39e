// Package processor ресемплирует изображения для миниатюр.
// Размеры считает вызывающий код, здесь только декодирование и кодирование.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	// декодеры для DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	ChoiceImaging = "imaging"
	ChoiceVips    = "vips"
)

var (
	ErrEmptySource      = errors.New("empty source image")
	ErrUnknownProcessor = errors.New("unknown image processor")
)

// Processor внешний обработчик изображений
type Processor interface {
	Resample(ctx context.Context, src []byte, width, height int) ([]byte, error)
	Dimensions(src []byte) (width, height int, err error)
	Name() string
}

// New выбирает реализацию по значению gallery.processor из конфигурации
func New(log *slog.Logger, choice string) (Processor, error) {
	switch choice {
	case "", ChoiceImaging:
		return NewImagingProcessor(), nil
	case ChoiceVips:
		return NewVipsProcessor(log)
	default:
		return nil, fmt.Errorf("processor.New: %q: %w", choice, ErrUnknownProcessor)
	}
}

// probeDimensions читает только заголовок изображения
func probeDimensions(src []byte) (int, int, string, error) {
	if len(src) == 0 {
		return 0, 0, "", ErrEmptySource
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image config: %w", err)
	}

	return cfg.Width, cfg.Height, format, nil
}

// swapsAxes EXIF-ориентации 5-8 поворачивают кадр на 90 градусов
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}
