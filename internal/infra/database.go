package infra

import (
	"fmt"

	"entrepeques/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Each in-flight booking pins one connection while it holds the slot lock.
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table and then applies schema patches.
// Integration tests call it directly against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Categoria{},
		&model.Subcategoria{},
		&model.PrecioRopa{},
		&model.Cliente{},
		&model.Cita{},
		&model.CitaItem{},
		&model.AjusteCita{},
		&model.Valuacion{},
		&model.ValuacionItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS so re-running on an
// already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// one active price per (group, garment, quality); inactive history rows may repeat
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_precios_ropa_activo
		    ON precios_ropa (grupo_categoria, tipo_prenda, nivel_calidad)
		    WHERE activo`,
		// catalog seeding upserts subcategories by name within a category
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_subcategorias_categoria_nombre
		    ON subcategorias (categoria_id, nombre)`,
		// slot occupancy count used under the booking lock
		`CREATE INDEX IF NOT EXISTS idx_citas_turno_activas
		    ON citas (fecha, hora_inicio)
		    WHERE estado <> 'cancelled'`,
		`CREATE INDEX IF NOT EXISTS idx_clientes_telefono_activo
		    ON clientes (telefono)
		    WHERE activo`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
