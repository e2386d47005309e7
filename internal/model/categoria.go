package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Categoria groups subcategories in the valuation and booking forms.
type Categoria struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string    `gorm:"uniqueIndex;not null"`
	Descripcion *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Subcategorias []Subcategoria `gorm:"foreignKey:CategoriaID"`
}

// TableName overrides GORM's default singular → plural logic for Spanish names.
func (Categoria) TableName() string { return "categorias" }

// Subcategoria carries the pricing multipliers used by the valuation engine.
// Gap* convert a new retail price into a used baseline; Margen* are the store markup.
// A subcategory without multipliers (all nil) has no pricing config.
type Subcategoria struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoriaID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Nombre      string           `gorm:"not null"`
	SKU         *string          `gorm:"type:varchar(20)"`
	GapNuevo    *decimal.Decimal `gorm:"type:decimal(6,4)"`
	GapUsado    *decimal.Decimal `gorm:"type:decimal(6,4)"`
	MargenNuevo *decimal.Decimal `gorm:"type:decimal(6,4)"`
	MargenUsado *decimal.Decimal `gorm:"type:decimal(6,4)"`
	EsRopa      bool             `gorm:"not null;default:false"`
	// ComprasHabilitadas=false hides the subcategory from new bookings
	ComprasHabilitadas bool `gorm:"not null;default:true"`
	Activo             bool `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}

func (Subcategoria) TableName() string { return "subcategorias" }

// TienePrecios reports whether every multiplier is set.
func (s *Subcategoria) TienePrecios() bool {
	return s.GapNuevo != nil && s.GapUsado != nil && s.MargenNuevo != nil && s.MargenUsado != nil
}
