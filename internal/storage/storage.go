package storage

import "errors"

var (
	ErrGalleryNotFound = errors.New("gallery not found")
	ErrItemNotFound    = errors.New("gallery item not found")
)

var (
	ErrFileTooLarge = errors.New("file size exceeds limit")
	ErrFileNotFound = errors.New("file not found")
	ErrEmptyPath    = errors.New("empty file path")
)

var ErrGalleryExists = errors.New("gallery with this slug already exists")
