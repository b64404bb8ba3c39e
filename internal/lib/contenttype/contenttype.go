// Package contenttype классифицирует загруженные файлы по расширению.
// Реестр неизменяем после создания и передается в сервисы явно.
package contenttype

import "strings"

// Unknown тип для расширений, которых нет в реестре
const Unknown = "Unknown"

// DefaultExtensions используются, если в конфигурации не задан свой набор
var DefaultExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"jpe":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"mp3":  "audio/mpeg",
	"zip":  "application/zip",
}

// thumbnailable типы, которые умеют декодировать оба процессора
var thumbnailable = map[string]bool{
	"image/jpeg":     true,
	"image/pjpeg":    true,
	"image/jpg":      true,
	"image/png":      true,
	"image/x-png":    true,
	"image/gif":      true,
	"image/bmp":      true,
	"image/x-ms-bmp": true,
	"image/tiff":     true,
}

type Registry struct {
	extensions map[string]string
}

// New копирует переданную карту расширение -> content type
func New(extensions map[string]string) *Registry {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	m := make(map[string]string, len(extensions))
	for ext, ct := range extensions {
		m[normalize(ext)] = strings.ToLower(strings.TrimSpace(ct))
	}

	return &Registry{extensions: m}
}

// ContentType возвращает тип по расширению или Unknown
func (r *Registry) ContentType(extension string) string {
	if ct, ok := r.extensions[normalize(extension)]; ok {
		return ct
	}
	return Unknown
}

// Thumbnailable сообщает, можно ли строить миниатюры для этого типа
func (r *Registry) Thumbnailable(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return thumbnailable[ct]
}

func (r *Registry) Len() int {
	return len(r.extensions)
}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
