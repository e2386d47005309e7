package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Estados de una valuación.
const (
	ValuacionPendiente  = "pending"
	ValuacionCompletada = "completed"
	ValuacionCancelada  = "cancelled"
)

// Valuacion is a valuation session: a valuator prices a client's items one by one
// and then closes the session with an offer.
type Valuacion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID uuid.UUID `gorm:"type:uuid;not null;index"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null"`
	Estado    string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	// Totals are computed on Finalizar
	TotalCompra       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalConsignacion *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notas             *string
	FinalizadaEn      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items   []ValuacionItem `gorm:"foreignKey:ValuacionID"`
	Cliente *Cliente        `gorm:"foreignKey:ClienteID"`
}

func (Valuacion) TableName() string { return "valuaciones" }

// ValuacionItem stores one quote exactly as computed, plus the price finally agreed.
type ValuacionItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ValuacionID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SubcategoriaID uuid.UUID `gorm:"type:uuid;not null"`
	Renombre       string    `gorm:"type:varchar(20);not null"`
	Condicion      string    `gorm:"type:varchar(20);not null"`
	Demanda        string    `gorm:"type:varchar(20);not null"`
	Limpieza       string    `gorm:"type:varchar(20);not null"`
	// Estado: "nuevo" | "usado como nuevo" | "usado"
	Estado    string `gorm:"type:varchar(20);not null"`
	Modalidad string `gorm:"type:varchar(20);not null"`
	Cantidad  int    `gorm:"not null;default:1"`
	// Caracteristicas is the free-form attribute bag, stored untouched
	Caracteristicas datatypes.JSONMap `gorm:"type:jsonb"`
	Imagenes        datatypes.JSON    `gorm:"type:jsonb"`
	Notas           *string

	PrecioNuevo          decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PuntajeCompra        int              `gorm:"not null"`
	PuntajeVenta         int              `gorm:"not null"`
	PrecioCompraSugerido decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PrecioVentaSugerido  decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PrecioConsignacion   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	PrecioCreditoTienda  decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	PrecioFinalCompra    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	PrecioFinalVenta     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	VersionPolitica      string           `gorm:"type:varchar(20);not null"`
	CreatedAt            time.Time
}

func (ValuacionItem) TableName() string { return "valuaciones_items" }
