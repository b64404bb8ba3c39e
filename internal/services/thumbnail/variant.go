package thumbnail

import (
	"regexp"
	"strconv"

	"premium_gallery/internal/domain/models"
)

var prefixPattern = regexp.MustCompile(`^\w+$`)

// ValidPrefix префикс подчиняется тем же правилам, что имена в default_thumbnails,
// иначе настроенный вариант нельзя было бы запросить явно.
func ValidPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}

// ResolveVariant строит ключ миниатюры из запрошенных (а не вычисленных) размеров,
// чтобы ключ не зависел от пропорций исходника.
func ResolveVariant(width, height *int, prefix string) models.Variant {
	if width == nil && height == nil {
		return models.CanonicalView
	}

	key := dimension(width) + "x" + dimension(height)
	if prefix != "" {
		key = prefix + "_" + key
	}

	return models.NamedVariant(key)
}

func dimension(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
