package model

import (
	"time"

	"github.com/google/uuid"
)

// Estados de una cita. Only CitaProgramada accepts transitions.
const (
	CitaProgramada = "scheduled"
	CitaCompletada = "completed"
	CitaCancelada  = "cancelled"
	CitaNoAsistio  = "no_show"
)

// Cita is an appointment in which a seller brings items for valuation.
// Booked seats are never stored: they are recomputed by counting the
// non-cancelled citas whose HoraInicio falls inside a slot.
type Cita struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ClienteNombre   string    `gorm:"not null"`
	ClienteTelefono string    `gorm:"type:varchar(20);not null"`
	ClienteEmail    *string
	Fecha           time.Time `gorm:"type:date;not null;index:idx_citas_turno,priority:1"`
	// HoraInicio/HoraFin are "HH:MM" wall-clock times in the store's zone
	HoraInicio string `gorm:"type:varchar(5);not null;index:idx_citas_turno,priority:2"`
	HoraFin    string `gorm:"type:varchar(5);not null"`
	Estado     string `gorm:"type:varchar(20);not null;default:'scheduled';index"`
	Notas      *string
	// Cancellation audit, set only when Estado = cancelled
	MotivoCancelacion *string
	CanceladaPor      *uuid.UUID `gorm:"type:uuid"`
	CanceladaEn       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items   []CitaItem `gorm:"foreignKey:CitaID"`
	Cliente *Cliente   `gorm:"foreignKey:ClienteID"`
}

func (Cita) TableName() string { return "citas" }

// CitaItem is one line of what the seller plans to bring, in form order.
type CitaItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CitaID           uuid.UUID `gorm:"type:uuid;not null;index"`
	SubcategoriaID   uuid.UUID `gorm:"type:uuid;not null"`
	Orden            int       `gorm:"not null"`
	Descripcion      string    `gorm:"not null"`
	Cantidad         int       `gorm:"not null;default:1"`
	ExcelenteCalidad bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time

	Subcategoria *Subcategoria `gorm:"foreignKey:SubcategoriaID"`
}

func (CitaItem) TableName() string { return "citas_items" }

// AjusteCita is a key/value setting of the booking surface (e.g. the public note).
type AjusteCita struct {
	Clave     string `gorm:"primaryKey;type:varchar(50)"`
	Valor     string `gorm:"not null;default:''"`
	UpdatedAt time.Time
}

func (AjusteCita) TableName() string { return "ajustes_citas" }
