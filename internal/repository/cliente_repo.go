package repository

import (
	"context"

	"entrepeques/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	// BuscarPorTelefono matches a phone fragment among active clients, ordered by
	// name, at most limit rows.
	BuscarPorTelefono(ctx context.Context, fragmento string, limit int) ([]model.Cliente, error)
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	return findCliente(r.db.WithContext(ctx), "id = ?", id)
}

func (r *clienteRepo) BuscarPorTelefono(ctx context.Context, fragmento string, limit int) ([]model.Cliente, error) {
	var list []model.Cliente
	err := r.db.WithContext(ctx).
		Select("id", "nombre").
		Where("activo = ? AND telefono LIKE ?", true, "%"+fragmento+"%").
		Order("nombre").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func findCliente(db *gorm.DB, query string, args ...interface{}) (*model.Cliente, error) {
	var c model.Cliente
	if err := db.Where(query, args...).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
