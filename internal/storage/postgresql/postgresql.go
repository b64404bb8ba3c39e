package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

// schema галерей и их элементов. Миниатюры удаляются каскадно вместе с родителем,
// уникальный индекс (parent_id, variant) не дает создать два одинаковых варианта.
const schema = `
CREATE TABLE IF NOT EXISTS galleries (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title VARCHAR(255) NOT NULL,
	slug VARCHAR(255) UNIQUE NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS gallery_items (
	id UUID PRIMARY KEY,
	gallery_id UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
	parent_id UUID REFERENCES gallery_items(id) ON DELETE CASCADE,
	variant VARCHAR(255),
	position INT,
	name VARCHAR(255) NOT NULL,
	filename VARCHAR(255) NOT NULL,
	extension VARCHAR(32) NOT NULL DEFAULT '',
	content_type VARCHAR(255) NOT NULL,
	width INT NOT NULL DEFAULT 0,
	height INT NOT NULL DEFAULT 0,
	size BIGINT NOT NULL DEFAULT 0,
	created_by UUID,
	updated_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((parent_id IS NULL) = (variant IS NULL)),
	CHECK (parent_id IS NULL OR position IS NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS gallery_items_parent_variant_idx
	ON gallery_items (parent_id, variant);

CREATE INDEX IF NOT EXISTS gallery_items_position_idx
	ON gallery_items (gallery_id, position) WHERE parent_id IS NULL;
`

func New(ctx context.Context, storagePath string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := pgxpool.Connect(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		db: db,
	}, nil
}

// Pool отдает пул соединений репозиториям
func (s *Storage) Pool() *pgxpool.Pool {
	return s.db
}

// Migrate создает таблицы и индексы, повторный вызов безопасен
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgresql.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Storage) Stop() {
	s.db.Close()
}
