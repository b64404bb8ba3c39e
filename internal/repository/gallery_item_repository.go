package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const galleryItemsTable = "gallery_items"

var itemColumns = []string{
	"id",
	"gallery_id",
	"parent_id",
	"variant",
	"position",
	"name",
	"filename",
	"extension",
	"content_type",
	"width",
	"height",
	"size",
	"created_by",
	"updated_by",
	"created_at",
	"updated_at",
}

// querier общий набор методов пула и транзакции
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type GalleryItemRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewGalleryItemRepo(db *pgxpool.Pool) *GalleryItemRepo {
	return &GalleryItemRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// WithinGallery открывает транзакцию и берет advisory-блокировку галереи до ее конца,
// так что изменения позиций в одной галерее не пересекаются даже между инстансами.
func (r *GalleryItemRepo) WithinGallery(ctx context.Context, galleryID uuid.UUID, fn func(tx GalleryItemTx) error) error {
	const op = "repository.GalleryItemRepo.WithinGallery"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "gallery:"+galleryID.String()); err != nil {
		return fmt.Errorf("%s: failed to lock gallery: %w", op, err)
	}

	if err := fn(&galleryItemTx{q: tx, sb: r.sb}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

func (r *GalleryItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	const op = "repository.GalleryItemRepo.FindByID"

	item, err := selectOne(ctx, r.db, r.sb, sq.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *GalleryItemRepo) FindThumbnail(ctx context.Context, parentID uuid.UUID, variant string) (*models.GalleryItem, error) {
	const op = "repository.GalleryItemRepo.FindThumbnail"

	item, err := selectOne(ctx, r.db, r.sb, sq.Eq{"parent_id": parentID, "variant": variant})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *GalleryItemRepo) CreateThumbnail(ctx context.Context, item *models.GalleryItem) (*models.GalleryItem, error) {
	const op = "repository.GalleryItemRepo.CreateThumbnail"

	if item.ParentID == nil || item.Variant == nil {
		return nil, fmt.Errorf("%s: parent and variant are required", op)
	}

	query, args, err := insertItem(r.sb, item).
		Suffix("ON CONFLICT (parent_id, variant) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// вариант уже создан параллельно, отдаем существующую запись
		existing, err := r.FindThumbnail(ctx, *item.ParentID, *item.Variant)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *GalleryItemRepo) ListThumbnails(ctx context.Context, parentID uuid.UUID) ([]models.GalleryItem, error) {
	const op = "repository.GalleryItemRepo.ListThumbnails"

	items, err := r.selectMany(ctx, sq.Eq{"parent_id": parentID}, "variant")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// ListTopLevel возвращает элементы галереи верхнего уровня по возрастанию позиции
func (r *GalleryItemRepo) ListTopLevel(ctx context.Context, galleryID uuid.UUID) ([]models.GalleryItem, error) {
	const op = "repository.GalleryItemRepo.ListTopLevel"

	items, err := r.selectMany(ctx, sq.And{
		sq.Eq{"gallery_id": galleryID},
		sq.Eq{"parent_id": nil},
	}, "position")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *GalleryItemRepo) CountTopLevel(ctx context.Context, galleryID uuid.UUID) (int, error) {
	const op = "repository.GalleryItemRepo.CountTopLevel"

	count, err := countTopLevel(ctx, r.db, r.sb, galleryID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// Delete удаляет запись вне транзакции галереи, используется для миниатюр
func (r *GalleryItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "repository.GalleryItemRepo.Delete"

	if err := deleteItem(ctx, r.db, r.sb, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func selectOne(ctx context.Context, q querier, sb sq.StatementBuilderType, where sq.Sqlizer) (*models.GalleryItem, error) {
	query, args, err := sb.Select(itemColumns...).
		From(galleryItemsTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	item, err := scanItem(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrItemNotFound
		}
		return nil, err
	}

	return item, nil
}

func (r *GalleryItemRepo) selectMany(ctx context.Context, where sq.Sqlizer, orderBy string) ([]models.GalleryItem, error) {
	query, args, err := r.sb.Select(itemColumns...).
		From(galleryItemsTable).
		Where(where).
		OrderBy(orderBy).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.GalleryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// galleryItemTx реализация GalleryItemTx поверх pgx.Tx
type galleryItemTx struct {
	q  querier
	sb sq.StatementBuilderType
}

// FindByID читает запись внутри транзакции, позиция актуальна на момент блокировки
func (t *galleryItemTx) FindByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	const op = "repository.galleryItemTx.FindByID"

	item, err := selectOne(ctx, t.q, t.sb, sq.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (t *galleryItemTx) CountTopLevel(ctx context.Context, galleryID uuid.UUID) (int, error) {
	return countTopLevel(ctx, t.q, t.sb, galleryID)
}

func (t *galleryItemTx) TopLevelPositions(ctx context.Context, galleryID uuid.UUID) ([]int, error) {
	const op = "repository.galleryItemTx.TopLevelPositions"

	query, args, err := t.sb.Select("COALESCE(position, 0)").
		From(galleryItemsTable).
		Where(sq.Eq{"gallery_id": galleryID, "parent_id": nil}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

func (t *galleryItemTx) Insert(ctx context.Context, item *models.GalleryItem) error {
	const op = "repository.galleryItemTx.Insert"

	query, args, err := insertItem(t.sb, item).ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := t.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ShiftPositionsAfter сдвигает на одну позицию вверх всех соседей после position
func (t *galleryItemTx) ShiftPositionsAfter(ctx context.Context, galleryID uuid.UUID, position int) error {
	const op = "repository.galleryItemTx.ShiftPositionsAfter"

	query, args, err := t.sb.Update(galleryItemsTable).
		Set("position", sq.Expr("position - 1")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"gallery_id": galleryID, "parent_id": nil}).
		Where(sq.Gt{"position": position}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := t.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (t *galleryItemTx) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "repository.galleryItemTx.Delete"

	if err := deleteItem(ctx, t.q, t.sb, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func countTopLevel(ctx context.Context, q querier, sb sq.StatementBuilderType, galleryID uuid.UUID) (int, error) {
	query, args, err := sb.Select("COUNT(*)").
		From(galleryItemsTable).
		Where(sq.Eq{"gallery_id": galleryID, "parent_id": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func deleteItem(ctx context.Context, q querier, sb sq.StatementBuilderType, id uuid.UUID) error {
	query, args, err := sb.Delete(galleryItemsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrItemNotFound
	}

	return nil
}

func insertItem(sb sq.StatementBuilderType, item *models.GalleryItem) sq.InsertBuilder {
	return sb.Insert(galleryItemsTable).
		Columns(itemColumns...).
		Values(
			item.ID,
			item.GalleryID,
			item.ParentID,
			item.Variant,
			item.Position,
			item.Name,
			item.Filename,
			item.Extension,
			item.ContentType,
			item.Width,
			item.Height,
			item.Size,
			item.CreatedBy,
			item.UpdatedBy,
			item.CreatedAt,
			item.UpdatedAt,
		)
}

func scanItem(row pgx.Row) (*models.GalleryItem, error) {
	var item models.GalleryItem
	err := row.Scan(
		&item.ID,
		&item.GalleryID,
		&item.ParentID,
		&item.Variant,
		&item.Position,
		&item.Name,
		&item.Filename,
		&item.Extension,
		&item.ContentType,
		&item.Width,
		&item.Height,
		&item.Size,
		&item.CreatedBy,
		&item.UpdatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}
