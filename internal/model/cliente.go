package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is a seller who brings items to the store.
type Cliente struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre         string    `gorm:"not null"`
	Telefono       string    `gorm:"type:varchar(20);not null;index"`
	Email          *string
	Identificacion *string
	Activo         bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Cliente) TableName() string { return "clientes" }
