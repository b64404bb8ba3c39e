package thumbnail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var defaultSpecPattern = regexp.MustCompile(`^(\w+)=(\d+)x(\d+)$`)

// DefaultSpec одна запись списка миниатюр по умолчанию: "small=50x50"
type DefaultSpec struct {
	Name   string
	Width  int
	Height int
}

// ParseDefaultSpecs разбирает строку "name=WxH,name=WxH". Некорректные записи
// не прерывают разбор и возвращаются отдельно.
func ParseDefaultSpecs(source string) ([]DefaultSpec, []error) {
	var (
		specs   []DefaultSpec
		skipped []error
	)

	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	for _, entry := range strings.Split(source, ",") {
		spec, err := ParseDefaultSpec(entry)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		specs = append(specs, spec)
	}

	return specs, skipped
}

func ParseDefaultSpec(entry string) (DefaultSpec, error) {
	entry = strings.TrimSpace(entry)

	m := defaultSpecPattern.FindStringSubmatch(entry)
	if m == nil {
		return DefaultSpec{}, fmt.Errorf("%q: %w", entry, ErrMalformedDefaultSpec)
	}

	width, err := strconv.Atoi(m[2])
	if err != nil {
		return DefaultSpec{}, fmt.Errorf("%q: %w", entry, ErrMalformedDefaultSpec)
	}
	height, err := strconv.Atoi(m[3])
	if err != nil {
		return DefaultSpec{}, fmt.Errorf("%q: %w", entry, ErrMalformedDefaultSpec)
	}

	return DefaultSpec{Name: m[1], Width: width, Height: height}, nil
}
