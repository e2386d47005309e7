package repository

import (
	"context"

	"entrepeques/internal/dto"
	"entrepeques/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ValuacionRepository interface {
	Create(ctx context.Context, v *model.Valuacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Valuacion, error)
	AddItem(ctx context.Context, item *model.ValuacionItem) error
	// Finalizar writes final prices, totals and the closing state in one
	// transaction, only while the valuation is still pending. It reports whether
	// the valuation was pending.
	Finalizar(ctx context.Context, v *model.Valuacion, items []model.ValuacionItem) (bool, error)
	List(ctx context.Context, filter dto.ValuacionFilter) ([]model.Valuacion, int64, error)
}

type valuacionRepo struct{ db *gorm.DB }

func NewValuacionRepository(db *gorm.DB) ValuacionRepository { return &valuacionRepo{db: db} }

func (r *valuacionRepo) Create(ctx context.Context, v *model.Valuacion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *valuacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Valuacion, error) {
	var v model.Valuacion
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Cliente").
		First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *valuacionRepo) AddItem(ctx context.Context, item *model.ValuacionItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *valuacionRepo) Finalizar(ctx context.Context, v *model.Valuacion, items []model.ValuacionItem) (bool, error) {
	pendiente := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Valuacion{}).
			Where("id = ? AND estado = ?", v.ID, model.ValuacionPendiente).
			Updates(map[string]interface{}{
				"estado":             v.Estado,
				"total_compra":       v.TotalCompra,
				"total_consignacion": v.TotalConsignacion,
				"notas":              v.Notas,
				"finalizada_en":      v.FinalizadaEn,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		pendiente = true
		for _, it := range items {
			err := tx.Model(&model.ValuacionItem{}).
				Where("id = ? AND valuacion_id = ?", it.ID, v.ID).
				Updates(map[string]interface{}{
					"precio_final_compra": it.PrecioFinalCompra,
					"precio_final_venta":  it.PrecioFinalVenta,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return pendiente, err
}

func (r *valuacionRepo) List(ctx context.Context, filter dto.ValuacionFilter) ([]model.Valuacion, int64, error) {
	var list []model.Valuacion
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Valuacion{})
	if filter.ClientID != "" {
		q = q.Where("cliente_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("estado = ?", filter.Status)
	}
	if filter.Desde != "" {
		q = q.Where("DATE(created_at) >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("DATE(created_at) <= ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("Cliente").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&list).Error
	return list, total, err
}
