// Package agenda computes bookable appointment slots from the store's business
// calendar and the bookings already taken.
package agenda

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"entrepeques/internal/apierror"
)

// FormatoFecha is the only accepted date layout (ISO calendar date).
const FormatoFecha = "2006-01-02"

// Hora is a wall-clock time expressed in minutes since midnight.
type Hora int

// ParseHora parses "HH:MM".
func ParseHora(s string) (Hora, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, apierror.Newf(apierror.KindInvalidInput, "Hora no válida: %q (formato HH:MM)", s)
	}
	return Hora(t.Hour()*60 + t.Minute()), nil
}

func (h Hora) String() string {
	return fmt.Sprintf("%02d:%02d", int(h)/60, int(h)%60)
}

// Ventana is an opening window [Inicio, Fin) within a business day.
type Ventana struct {
	Inicio Hora
	Fin    Hora
}

// Calendario describes when the store receives sellers.
type Calendario struct {
	Dias      map[time.Weekday]bool
	Ventanas  []Ventana
	Duracion  time.Duration
	Capacidad int
	Bloqueos  map[string]bool
	Zona      *time.Location
}

// Config is the textual form of a Calendario, as read from the environment.
//
//	Dias:     "2,4"                       weekday numbers, 0 = domingo
//	Ventanas: "11:00-14:00,16:00-18:15"
//	Bloqueos: "2025-12-25,2026-01-01"
type Config struct {
	Dias        string
	Ventanas    string
	DuracionMin int
	Capacidad   int
	Zona        string
	Bloqueos    string
}

// DefaultConfig matches the store's published schedule: Tuesdays and Thursdays,
// seven 45-minute slots, one seller per slot.
func DefaultConfig() Config {
	return Config{
		Dias:        "2,4",
		Ventanas:    "11:00-14:00,16:00-18:15",
		DuracionMin: 45,
		Capacidad:   1,
		Zona:        "America/Mexico_City",
	}
}

// NewCalendario validates and builds a Calendario.
func NewCalendario(cfg Config) (*Calendario, error) {
	if cfg.DuracionMin <= 0 {
		return nil, fmt.Errorf("agenda: slot duration must be positive, got %d", cfg.DuracionMin)
	}
	if cfg.Capacidad <= 0 {
		return nil, fmt.Errorf("agenda: slot capacity must be positive, got %d", cfg.Capacidad)
	}
	zona := time.UTC
	if cfg.Zona != "" {
		loc, err := time.LoadLocation(cfg.Zona)
		if err != nil {
			return nil, fmt.Errorf("agenda: time zone %q: %w", cfg.Zona, err)
		}
		zona = loc
	}

	c := &Calendario{
		Dias:      make(map[time.Weekday]bool),
		Duracion:  time.Duration(cfg.DuracionMin) * time.Minute,
		Capacidad: cfg.Capacidad,
		Bloqueos:  make(map[string]bool),
		Zona:      zona,
	}

	for _, f := range splitList(cfg.Dias) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("agenda: invalid weekday %q", f)
		}
		c.Dias[time.Weekday(n)] = true
	}

	var prevFin Hora = -1
	for _, f := range splitList(cfg.Ventanas) {
		desde, hasta, ok := strings.Cut(f, "-")
		if !ok {
			return nil, fmt.Errorf("agenda: invalid window %q, want HH:MM-HH:MM", f)
		}
		inicio, err := ParseHora(desde)
		if err != nil {
			return nil, fmt.Errorf("agenda: window %q: %w", f, err)
		}
		fin, err := ParseHora(hasta)
		if err != nil {
			return nil, fmt.Errorf("agenda: window %q: %w", f, err)
		}
		if fin <= inicio {
			return nil, fmt.Errorf("agenda: window %q ends before it starts", f)
		}
		if inicio < prevFin {
			return nil, fmt.Errorf("agenda: window %q overlaps or is out of order", f)
		}
		prevFin = fin
		c.Ventanas = append(c.Ventanas, Ventana{Inicio: inicio, Fin: fin})
	}

	for _, f := range splitList(cfg.Bloqueos) {
		d, err := time.Parse(FormatoFecha, f)
		if err != nil {
			return nil, fmt.Errorf("agenda: invalid blackout date %q", f)
		}
		c.Bloqueos[d.Format(FormatoFecha)] = true
	}
	return c, nil
}

// MustDefault returns the calendar built from DefaultConfig. It panics only if
// the time zone database is missing.
func MustDefault() *Calendario {
	c, err := NewCalendario(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseFecha parses a YYYY-MM-DD string as midnight in the calendar's zone.
func (c *Calendario) ParseFecha(s string) (time.Time, error) {
	d, err := time.ParseInLocation(FormatoFecha, strings.TrimSpace(s), c.Zona)
	if err != nil {
		return time.Time{}, apierror.Newf(apierror.KindInvalidDateFormat,
			"Fecha no válida: %q (formato AAAA-MM-DD)", s)
	}
	return d, nil
}

// Dia truncates t to midnight of its calendar day in the calendar's zone.
func (c *Calendario) Dia(t time.Time) time.Time {
	t = t.In(c.Zona)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Zona)
}

// Abierto reports whether the store receives sellers on that day.
func (c *Calendario) Abierto(fecha time.Time) bool {
	fecha = fecha.In(c.Zona)
	return c.Dias[fecha.Weekday()] && !c.Bloqueos[fecha.Format(FormatoFecha)]
}

// Inicios lists every slot start of an open day, in order. A slot must fit
// entirely inside its window; a trailing remainder shorter than Duracion is dropped.
func (c *Calendario) Inicios() []Hora {
	paso := Hora(c.Duracion / time.Minute)
	var out []Hora
	for _, v := range c.Ventanas {
		for h := v.Inicio; h+paso <= v.Fin; h += paso {
			out = append(out, h)
		}
	}
	return out
}

// EsInicio reports whether h is an actual slot start.
func (c *Calendario) EsInicio(h Hora) bool {
	for _, s := range c.Inicios() {
		if s == h {
			return true
		}
	}
	return false
}

// Fin returns the end of the slot starting at h.
func (c *Calendario) Fin(h Hora) Hora {
	return h + Hora(c.Duracion/time.Minute)
}

// Instante combines a day and a wall-clock time into an absolute instant.
func (c *Calendario) Instante(fecha time.Time, h Hora) time.Time {
	d := c.Dia(fecha)
	return time.Date(d.Year(), d.Month(), d.Day(), int(h)/60, int(h)%60, 0, 0, c.Zona)
}
