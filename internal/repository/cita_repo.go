package repository

import (
	"context"
	"hash/fnv"
	"time"

	"entrepeques/internal/dto"
	"entrepeques/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CitaTx is what a booking can do while it holds the slot lock. Every call runs
// inside the same transaction as the lock.
type CitaTx interface {
	// ContarActivas counts non-cancelled citas on fecha whose start lies in [desde, hasta).
	ContarActivas(ctx context.Context, fecha time.Time, desde, hasta string) (int64, error)
	ClientePorID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	ClientePorTelefono(ctx context.Context, telefono string) (*model.Cliente, error)
	CrearCliente(ctx context.Context, c *model.Cliente) error
	Crear(ctx context.Context, c *model.Cita) error
}

// CitaStats are the dashboard counters.
type CitaStats struct {
	Total      int64
	Programada int64
	Completada int64
	Cancelada  int64
	NoAsistio  int64
	Hoy        int64
	Semana     int64
}

type CitaRepository interface {
	// ConTurnoBloqueado opens a transaction, takes a Postgres advisory lock for
	// the (fecha, hora) slot and runs fn. The lock is released on commit or
	// rollback, so concurrent bookings of the same slot (from any process) run
	// one after the other. fn returning an error rolls everything back.
	ConTurnoBloqueado(ctx context.Context, fecha time.Time, hora string, fn func(tx CitaTx) error) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cita, error)
	// HorasReservadas returns the start times of non-cancelled citas per day,
	// keyed by YYYY-MM-DD, for desde..hasta inclusive.
	HorasReservadas(ctx context.Context, desde, hasta time.Time) (map[string][]string, error)
	List(ctx context.Context, filter dto.CitaFilter) ([]model.Cita, int64, error)
	// Transicionar applies cambios only while the cita is still scheduled.
	// It reports whether a row changed.
	Transicionar(ctx context.Context, id uuid.UUID, cambios map[string]interface{}) (bool, error)
	Stats(ctx context.Context, hoy time.Time) (CitaStats, error)
}

type citaRepo struct{ db *gorm.DB }

func NewCitaRepository(db *gorm.DB) CitaRepository { return &citaRepo{db: db} }

// slotLockKey maps a slot to the 64-bit key of pg_advisory_xact_lock.
func slotLockKey(fecha time.Time, hora string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fecha.Format("2006-01-02") + "|" + hora))
	return int64(h.Sum64())
}

func (r *citaRepo) ConTurnoBloqueado(ctx context.Context, fecha time.Time, hora string, fn func(tx CitaTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", slotLockKey(fecha, hora)).Error; err != nil {
			return err
		}
		return fn(&citaTx{tx: tx})
	})
}

func (r *citaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cita, error) {
	var c model.Cita
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Preload("Items.Subcategoria").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *citaRepo) HorasReservadas(ctx context.Context, desde, hasta time.Time) (map[string][]string, error) {
	var rows []struct {
		Fecha      time.Time
		HoraInicio string
	}
	err := r.db.WithContext(ctx).Model(&model.Cita{}).
		Select("fecha", "hora_inicio").
		Where("fecha >= ? AND fecha <= ? AND estado <> ?", desde.Format("2006-01-02"), hasta.Format("2006-01-02"), model.CitaCancelada).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, row := range rows {
		k := row.Fecha.Format("2006-01-02")
		out[k] = append(out[k], row.HoraInicio)
	}
	return out, nil
}

func (r *citaRepo) List(ctx context.Context, filter dto.CitaFilter) ([]model.Cita, int64, error) {
	var citas []model.Cita
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Cita{})
	if filter.Desde != "" {
		q = q.Where("fecha >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("fecha <= ?", filter.Hasta)
	}
	if filter.Status != "" {
		q = q.Where("estado = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("cliente_nombre ILIKE ? OR cliente_telefono LIKE ?", like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Preload("Items.Subcategoria").
		Order("fecha DESC, hora_inicio DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&citas).Error
	return citas, total, err
}

func (r *citaRepo) Transicionar(ctx context.Context, id uuid.UUID, cambios map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Cita{}).
		Where("id = ? AND estado = ?", id, model.CitaProgramada).
		Updates(cambios)
	return res.RowsAffected > 0, res.Error
}

func (r *citaRepo) Stats(ctx context.Context, hoy time.Time) (CitaStats, error) {
	var s CitaStats
	dia := hoy.Format("2006-01-02")
	semana := hoy.AddDate(0, 0, 7).Format("2006-01-02")
	err := r.db.WithContext(ctx).Model(&model.Cita{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE estado = ?) AS programada,
			COUNT(*) FILTER (WHERE estado = ?) AS completada,
			COUNT(*) FILTER (WHERE estado = ?) AS cancelada,
			COUNT(*) FILTER (WHERE estado = ?) AS no_asistio,
			COUNT(*) FILTER (WHERE estado = ? AND fecha = ?) AS hoy,
			COUNT(*) FILTER (WHERE estado = ? AND fecha > ? AND fecha <= ?) AS semana`,
			model.CitaProgramada, model.CitaCompletada, model.CitaCancelada, model.CitaNoAsistio,
			model.CitaProgramada, dia,
			model.CitaProgramada, dia, semana).
		Scan(&s).Error
	return s, err
}

// ── Locked transaction view ──────────────────────────────────────────────────

type citaTx struct{ tx *gorm.DB }

func (t *citaTx) ContarActivas(ctx context.Context, fecha time.Time, desde, hasta string) (int64, error) {
	var n int64
	err := t.tx.WithContext(ctx).Model(&model.Cita{}).
		Where("fecha = ? AND hora_inicio >= ? AND hora_inicio < ? AND estado <> ?",
			fecha.Format("2006-01-02"), desde, hasta, model.CitaCancelada).
		Count(&n).Error
	return n, err
}

func (t *citaTx) ClientePorID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	return findCliente(t.tx.WithContext(ctx), "id = ? AND activo = ?", id, true)
}

func (t *citaTx) ClientePorTelefono(ctx context.Context, telefono string) (*model.Cliente, error) {
	return findCliente(t.tx.WithContext(ctx), "telefono = ? AND activo = ?", telefono, true)
}

func (t *citaTx) CrearCliente(ctx context.Context, c *model.Cliente) error {
	return t.tx.WithContext(ctx).Create(c).Error
}

func (t *citaTx) Crear(ctx context.Context, c *model.Cita) error {
	return t.tx.WithContext(ctx).Create(c).Error
}
