// Package catalogo loads the category tree and the clothing price list from a
// YAML document and upserts them. It backs the seedcatalog command; category
// management itself lives outside this API.
package catalogo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"entrepeques/internal/pricing"
	"entrepeques/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Archivo struct {
	Categorias  []Categoria  `yaml:"categorias"`
	PreciosRopa []PrecioRopa `yaml:"precios_ropa"`
}

type Categoria struct {
	Nombre        string         `yaml:"nombre"`
	Descripcion   string         `yaml:"descripcion"`
	Subcategorias []Subcategoria `yaml:"subcategorias"`
}

// Subcategoria leaves the multipliers nil when the YAML omits them, which the
// valuation engine reports as missing config.
type Subcategoria struct {
	Nombre      string   `yaml:"nombre"`
	SKU         string   `yaml:"sku"`
	GapNuevo    *float64 `yaml:"gap_nuevo"`
	GapUsado    *float64 `yaml:"gap_usado"`
	MargenNuevo *float64 `yaml:"margen_nuevo"`
	MargenUsado *float64 `yaml:"margen_usado"`
	EsRopa      bool     `yaml:"es_ropa"`
	Compras     *bool    `yaml:"compras_habilitadas"`
}

type PrecioRopa struct {
	Grupo   string  `yaml:"grupo"`
	Tipo    string  `yaml:"tipo"`
	Calidad string  `yaml:"calidad"`
	Precio  float64 `yaml:"precio"`
}

// Resumen counts the rows written by Aplicar.
type Resumen struct {
	Categorias    int
	Subcategorias int
	PreciosRopa   int
}

var gruposValidos = map[string]bool{
	pricing.GroupCuerpoCompleto: true,
	pricing.GroupArribaCintura:  true,
	pricing.GroupAbajoCintura:   true,
	pricing.GroupCalzado:        true,
	pricing.GroupDamaMaternidad: true,
}

// Leer decodes and validates a catalog document. Every problem found is
// reported, not just the first one.
func Leer(r io.Reader) (*Archivo, error) {
	var a Archivo
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalogo: %w", err)
	}
	if errs := a.validar(); len(errs) > 0 {
		return nil, fmt.Errorf("catalogo: %w", errors.Join(errs...))
	}
	return &a, nil
}

func (a *Archivo) validar() []error {
	var errs []error
	categorias := make(map[string]bool)
	for i, c := range a.Categorias {
		if strings.TrimSpace(c.Nombre) == "" {
			errs = append(errs, fmt.Errorf("categoria %d: nombre vacío", i+1))
			continue
		}
		if categorias[c.Nombre] {
			errs = append(errs, fmt.Errorf("categoria %q repetida", c.Nombre))
		}
		categorias[c.Nombre] = true

		subs := make(map[string]bool)
		for _, s := range c.Subcategorias {
			if strings.TrimSpace(s.Nombre) == "" {
				errs = append(errs, fmt.Errorf("categoria %q: subcategoría sin nombre", c.Nombre))
				continue
			}
			if subs[s.Nombre] {
				errs = append(errs, fmt.Errorf("subcategoría %q repetida en %q", s.Nombre, c.Nombre))
			}
			subs[s.Nombre] = true
			errs = append(errs, s.validarMultiplicadores(c.Nombre)...)
		}
	}

	precios := make(map[string]bool)
	for _, p := range a.PreciosRopa {
		k := p.Grupo + "|" + p.Tipo + "|" + p.Calidad
		switch {
		case !gruposValidos[p.Grupo]:
			errs = append(errs, fmt.Errorf("precio %s: grupo desconocido", k))
		case p.Tipo == "" || p.Calidad == "":
			errs = append(errs, fmt.Errorf("precio %s: tipo y calidad son obligatorios", k))
		case p.Precio <= 0:
			errs = append(errs, fmt.Errorf("precio %s: debe ser mayor a cero", k))
		case precios[k]:
			errs = append(errs, fmt.Errorf("precio %s repetido", k))
		}
		precios[k] = true
	}
	return errs
}

func (s Subcategoria) validarMultiplicadores(categoria string) []error {
	set := 0
	for _, v := range []*float64{s.GapNuevo, s.GapUsado, s.MargenNuevo, s.MargenUsado} {
		if v == nil {
			continue
		}
		set++
		if *v <= 0 {
			return []error{fmt.Errorf("%s/%s: los multiplicadores deben ser positivos", categoria, s.Nombre)}
		}
	}
	if set != 0 && set != 4 {
		return []error{fmt.Errorf("%s/%s: se requieren los cuatro multiplicadores o ninguno", categoria, s.Nombre)}
	}
	return nil
}

// Aplicar upserts the whole document in one transaction. Categories match by
// name, subcategories by (categoría, nombre) and clothing prices by their active
// (grupo, tipo, calidad) key. Rows absent from the document are left untouched.
func Aplicar(ctx context.Context, db *gorm.DB, a *Archivo) (Resumen, error) {
	var res Resumen
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range a.Categorias {
			var id uuid.UUID
			err := tx.Raw(`
				INSERT INTO categorias (nombre, descripcion, activo, created_at, updated_at)
				VALUES (?, NULLIF(?, ''), true, now(), now())
				ON CONFLICT (nombre) DO UPDATE
				SET descripcion = EXCLUDED.descripcion,
				    activo = true,
				    updated_at = now()
				RETURNING id`, c.Nombre, c.Descripcion).Row().Scan(&id)
			if err != nil {
				return fmt.Errorf("categoria %q: %w", c.Nombre, err)
			}
			res.Categorias++

			for _, s := range c.Subcategorias {
				compras := s.Compras == nil || *s.Compras
				err := tx.Exec(`
					INSERT INTO subcategorias (categoria_id, nombre, sku, gap_nuevo, gap_usado,
					    margen_nuevo, margen_usado, es_ropa, compras_habilitadas, activo,
					    created_at, updated_at)
					VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, true, now(), now())
					ON CONFLICT (categoria_id, nombre) DO UPDATE
					SET sku = EXCLUDED.sku,
					    gap_nuevo = EXCLUDED.gap_nuevo,
					    gap_usado = EXCLUDED.gap_usado,
					    margen_nuevo = EXCLUDED.margen_nuevo,
					    margen_usado = EXCLUDED.margen_usado,
					    es_ropa = EXCLUDED.es_ropa,
					    compras_habilitadas = EXCLUDED.compras_habilitadas,
					    activo = true,
					    updated_at = now()`,
					id, s.Nombre, s.SKU,
					decimalPtr(s.GapNuevo), decimalPtr(s.GapUsado),
					decimalPtr(s.MargenNuevo), decimalPtr(s.MargenUsado),
					s.EsRopa, compras).Error
				if err != nil {
					return fmt.Errorf("subcategoria %q: %w", s.Nombre, err)
				}
				res.Subcategorias++
			}
		}

		for _, p := range a.PreciosRopa {
			err := tx.Exec(`
				INSERT INTO precios_ropa (grupo_categoria, tipo_prenda, nivel_calidad, precio_compra,
				    activo, created_at, updated_at)
				VALUES (?, ?, ?, ?, true, now(), now())
				ON CONFLICT (grupo_categoria, tipo_prenda, nivel_calidad) WHERE activo DO UPDATE
				SET precio_compra = EXCLUDED.precio_compra,
				    updated_at = now()`,
				p.Grupo, p.Tipo, p.Calidad, decimal.NewFromFloat(p.Precio).Round(2)).Error
			if err != nil {
				return fmt.Errorf("precio %s/%s/%s: %w", p.Grupo, p.Tipo, p.Calidad, err)
			}
			res.PreciosRopa++
		}
		return nil
	})
	if err != nil {
		return Resumen{}, err
	}
	return res, nil
}

// ErrCacheNoInvalidada means the catalog was committed but the cached clothing
// price lists could not be dropped; they stay stale until their TTL expires.
var ErrCacheNoInvalidada = errors.New("catalogo: clothing price cache not invalidated")

// CacheInvalidator drops cached entries under a key prefix. *infra.Cache
// implements it.
type CacheInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Sincronizar runs Aplicar and, once the transaction has committed, drops the
// cached clothing price lists so the API serves the new prices. A nil cache
// skips the invalidation. On ErrCacheNoInvalidada the returned Resumen is valid.
func Sincronizar(ctx context.Context, db *gorm.DB, a *Archivo, cache CacheInvalidator) (Resumen, error) {
	res, err := Aplicar(ctx, db, a)
	if err != nil || cache == nil {
		return res, err
	}
	if _, err := cache.DeletePrefix(ctx, service.ClavePreciosRopa); err != nil {
		return res, fmt.Errorf("%w: %v", ErrCacheNoInvalidada, err)
	}
	return res, nil
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
