package thumbnail

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidDimensions    = errors.New("invalid dimensions")
	ErrMalformedDefaultSpec = errors.New("malformed default thumbnail spec")
)

// ProportionalResize вписывает исходный размер в рамку maxWidth x maxHeight
// с сохранением пропорций. Незаданная сторона рамки равна исходной.
// При равных пропорциях масштаб считается по высоте. Каждая сторона
// результата не меньше 1.
func ProportionalResize(width, height int, maxWidth, maxHeight *int) (int, int, error) {
	const op = "thumbnail.ProportionalResize"

	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%s: source %dx%d: %w", op, width, height, ErrInvalidDimensions)
	}

	boundW, boundH := float64(width), float64(height)
	if maxWidth != nil {
		boundW = float64(*maxWidth)
	}
	if maxHeight != nil {
		boundH = float64(*maxHeight)
	}
	if boundW <= 0 || boundH <= 0 {
		return 0, 0, fmt.Errorf("%s: bounds %vx%v: %w", op, boundW, boundH, ErrInvalidDimensions)
	}

	boundingRatio := boundW / boundH
	sourceRatio := float64(width) / float64(height)

	var scale float64
	if sourceRatio > boundingRatio {
		scale = boundW / float64(width)
	} else {
		scale = boundH / float64(height)
	}

	return atLeastOne(math.Floor(float64(width) * scale)), atLeastOne(math.Floor(float64(height) * scale)), nil
}

// atLeastOne при экстремальных пропорциях короткая сторона не схлопывается в ноль
func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
