package repository

import (
	"github.com/jackc/pgx/v4/pgxpool"
)

type Repository struct {
	Galleries *GalleryRepo
	Items     *GalleryItemRepo
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		Galleries: NewGalleryRepo(db),
		Items:     NewGalleryItemRepo(db),
	}
}
