package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"premium_gallery/internal/storage"
)

// FileStorage интерфейс хранилища вложений
type FileStorage interface {
	Store(ctx context.Context, data []byte, contentType, path string) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
	BaseURL() string
}

// LocalFileStorage реализация для локальной файловой системы
type LocalFileStorage struct {
	baseDir string // Базовый каталог для хранения (например: "./public")
	baseURL string // Базовый URL для доступа к файлам (например: "http://localhost:8080/files")
	maxSize int64  // 0 - без ограничения
}

func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: baseURL,
		maxSize: maxSize,
	}, nil
}

// Store пишет файл атомарно: сначала во временный файл рядом, потом rename
func (s *LocalFileStorage) Store(ctx context.Context, data []byte, contentType, path string) (string, error) {
	const op = "storage.LocalFileStorage.Store"

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("%s: %w", op, storage.ErrEmptyPath)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	fullPath := s.GetFullPath(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("%s: failed to create directories: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%s: failed to create destination file: %w", op, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%s: failed to copy file: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}

// Read читает файл целиком
func (s *LocalFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	const op = "storage.LocalFileStorage.Read"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.GetFullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %s: %w", op, path, storage.ErrFileNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Delete удаляет файл из хранилища, отсутствие файла не ошибка
func (s *LocalFileStorage) Delete(ctx context.Context, path string) error {
	err := os.Remove(s.GetFullPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// GetFullPath возвращает полный путь к файлу на диске
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// BaseURL возвращает базовый URL для доступа к файлам
func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}
