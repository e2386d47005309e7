package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrecioRopa is one row of the flat-rate clothing list.
// (GrupoCategoria, TipoPrenda, NivelCalidad) is unique among active rows;
// the partial index is created in infra.RunMigrations.
type PrecioRopa struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GrupoCategoria string          `gorm:"type:varchar(30);not null;index"`
	TipoPrenda     string          `gorm:"type:varchar(60);not null"`
	NivelCalidad   string          `gorm:"type:varchar(20);not null"`
	PrecioCompra   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Activo         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PrecioRopa) TableName() string { return "precios_ropa" }
