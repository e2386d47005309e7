package repository

import (
	"context"

	"entrepeques/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubcategoriaRepository exposes the read side of category management plus the
// purchasing toggle used by the booking admin.
type SubcategoriaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Subcategoria, error)
	// ListParaReserva returns active subcategories with their category, ordered
	// by category name then subcategory name.
	ListParaReserva(ctx context.Context) ([]model.Subcategoria, error)
	ToggleCompras(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error)
}

type subcategoriaRepo struct{ db *gorm.DB }

func NewSubcategoriaRepository(db *gorm.DB) SubcategoriaRepository {
	return &subcategoriaRepo{db: db}
}

func (r *subcategoriaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error) {
	var s model.Subcategoria
	err := r.db.WithContext(ctx).Preload("Categoria").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subcategoriaRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Subcategoria, error) {
	var list []model.Subcategoria
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *subcategoriaRepo) ListParaReserva(ctx context.Context) ([]model.Subcategoria, error) {
	var list []model.Subcategoria
	err := r.db.WithContext(ctx).
		Joins("Categoria").
		Where("subcategorias.activo = ?", true).
		Order(`"Categoria".nombre ASC, subcategorias.nombre ASC`).
		Find(&list).Error
	return list, err
}

func (r *subcategoriaRepo) ToggleCompras(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error) {
	var s model.Subcategoria
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Subcategoria{}).
			Where("id = ?", id).
			Update("compras_habilitadas", gorm.Expr("NOT compras_habilitadas"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&s, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
