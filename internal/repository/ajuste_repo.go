package repository

import (
	"context"
	"errors"

	"entrepeques/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AjusteRepository stores the booking surface's key/value settings.
type AjusteRepository interface {
	// Get returns nil, nil when the key has never been set.
	Get(ctx context.Context, clave string) (*model.AjusteCita, error)
	Upsert(ctx context.Context, clave, valor string) (*model.AjusteCita, error)
}

type ajusteRepo struct{ db *gorm.DB }

func NewAjusteRepository(db *gorm.DB) AjusteRepository { return &ajusteRepo{db: db} }

func (r *ajusteRepo) Get(ctx context.Context, clave string) (*model.AjusteCita, error) {
	var a model.AjusteCita
	err := r.db.WithContext(ctx).First(&a, "clave = ?", clave).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ajusteRepo) Upsert(ctx context.Context, clave, valor string) (*model.AjusteCita, error) {
	a := model.AjusteCita{Clave: clave, Valor: valor}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clave"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at"}),
	}).Create(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
