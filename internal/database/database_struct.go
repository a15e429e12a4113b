package database

import (
	"errors"

	"github.com/thereayou/taskflow/internal/repository"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

var _ repository.Repository = (*Database)(nil)

// notFound транслирует gorm.ErrRecordNotFound в ошибку уровня репозитория
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
