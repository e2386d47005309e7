package repository

import (
	"context"

	"entrepeques/internal/model"

	"gorm.io/gorm"
)

type PrecioRopaRepository interface {
	// FindActivo returns the active entry for the triple, or gorm.ErrRecordNotFound.
	FindActivo(ctx context.Context, grupo, tipo, calidad string) (*model.PrecioRopa, error)
	// List returns active entries, optionally restricted to one group.
	List(ctx context.Context, grupo string) ([]model.PrecioRopa, error)
	TiposPrenda(ctx context.Context, grupo string) ([]string, error)
}

type precioRopaRepo struct{ db *gorm.DB }

func NewPrecioRopaRepository(db *gorm.DB) PrecioRopaRepository { return &precioRopaRepo{db: db} }

func (r *precioRopaRepo) FindActivo(ctx context.Context, grupo, tipo, calidad string) (*model.PrecioRopa, error) {
	var p model.PrecioRopa
	err := r.db.WithContext(ctx).
		Where("activo = ? AND grupo_categoria = ? AND tipo_prenda = ? AND nivel_calidad = ?", true, grupo, tipo, calidad).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *precioRopaRepo) List(ctx context.Context, grupo string) ([]model.PrecioRopa, error) {
	var list []model.PrecioRopa
	q := r.db.WithContext(ctx).Where("activo = ?", true)
	if grupo != "" {
		q = q.Where("grupo_categoria = ?", grupo)
	}
	err := q.Order("grupo_categoria, tipo_prenda, nivel_calidad").Find(&list).Error
	return list, err
}

func (r *precioRopaRepo) TiposPrenda(ctx context.Context, grupo string) ([]string, error) {
	var tipos []string
	err := r.db.WithContext(ctx).Model(&model.PrecioRopa{}).
		Where("activo = ? AND grupo_categoria = ?", true, grupo).
		Distinct().Order("tipo_prenda").
		Pluck("tipo_prenda", &tipos).Error
	return tipos, err
}
