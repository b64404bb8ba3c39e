package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

// ImagingProcessor реализация на чистом Go (disintegration/imaging)
type ImagingProcessor struct{}

func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{}
}

func (p *ImagingProcessor) Name() string {
	return ChoiceImaging
}

// Dimensions возвращает размеры с учетом EXIF-ориентации, в тех же осях,
// что получит Resample после AutoOrientation.
func (p *ImagingProcessor) Dimensions(src []byte) (int, int, error) {
	const op = "processor.ImagingProcessor.Dimensions"

	w, h, format, err := probeDimensions(src)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	// EXIF-ориентацию imaging читает только у JPEG
	if format != "jpeg" {
		return w, h, nil
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: failed to decode image: %w", op, err)
	}

	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

func (p *ImagingProcessor) Resample(ctx context.Context, src []byte, width, height int) ([]byte, error) {
	const op = "processor.ImagingProcessor.Resample"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, _, formatName, err := probeDimensions(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	format, err := imaging.FormatFromExtension(formatName)
	if err != nil {
		// форматы без кодировщика (webp) сохраняем как png
		format = imaging.PNG
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode image: %w", op, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	thumb := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%s: failed to encode thumbnail: %w", op, err)
	}

	return buf.Bytes(), nil
}
