package repository

import (
	"context"
	"errors"
	"fmt"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// uniqueViolation код ошибки PostgreSQL при нарушении уникального индекса
const uniqueViolation = "23505"

type GalleryRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewGalleryRepo(db *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateGallery создает новую галерею и возвращает её ID
func (r *GalleryRepo) CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error) {
	const op = "repository.GalleryRepo.CreateGallery"

	if gallery.ID == uuid.Nil {
		gallery.ID = uuid.New()
	}

	query, args, err := r.sb.Insert("galleries").
		Columns(
			"id",
			"title",
			"slug",
			"description",
		).
		Values(
			gallery.ID,
			gallery.Title,
			gallery.Slug,
			gallery.Description,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrGalleryExists)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// DeleteGallery удаляет галерею по ID, элементы удаляются каскадно
func (r *GalleryRepo) DeleteGallery(ctx context.Context, id uuid.UUID) error {
	const op = "repository.GalleryRepo.DeleteGallery"

	query, args, err := r.sb.Delete("galleries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

// GetGalleryByID возвращает галерею по ID
func (r *GalleryRepo) GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error) {
	const op = "repository.GalleryRepo.GetGalleryByID"

	query, args, err := r.sb.Select(
		"id",
		"title",
		"slug",
		"description",
		"created_at",
		"updated_at",
	).
		From("galleries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	var gallery models.Gallery
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&gallery.ID,
		&gallery.Title,
		&gallery.Slug,
		&gallery.Description,
		&gallery.CreatedAt,
		&gallery.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Gallery{}, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
		}
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	return gallery, nil
}

func (r *GalleryRepo) GetGalleries(ctx context.Context, page, perPage int) ([]models.Gallery, int, error) {
	const op = "repository.GalleryRepo.GetGalleries"

	// Проверка и корректировка параметров пагинации
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	totalCount, err := r.getTotalCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Select(
		"id", "title", "slug", "description", "created_at", "updated_at",
	).
		From("galleries").
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var galleries []models.Gallery
	for rows.Next() {
		var gallery models.Gallery
		err := rows.Scan(
			&gallery.ID,
			&gallery.Title,
			&gallery.Slug,
			&gallery.Description,
			&gallery.CreatedAt,
			&gallery.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		galleries = append(galleries, gallery)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, totalCount, nil
}

// Вспомогательная функция для получения общего количества записей
func (r *GalleryRepo) getTotalCount(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("galleries").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error build query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error execute query: %w (SQL: %s)", err, query)
	}

	return count, nil
}
