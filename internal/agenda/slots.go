package agenda

import (
	"iter"
	"time"
)

const (
	SemanasPorDefecto = 12
	SemanasMaximas    = 52
)

// Slot is a derived bookable interval [Inicio, Fin) on Fecha.
type Slot struct {
	Fecha      time.Time
	Inicio     Hora
	Fin        Hora
	Capacidad  int
	Reservadas int
	Disponible bool
}

// SlotsForDate partitions an open day into slots and counts the bookings whose
// start falls inside each one. reservas holds the start times of the day's
// non-cancelled appointments. A slot is available iff it has a free seat and
// starts strictly after now. Closed days and blackout dates yield no slots.
func (c *Calendario) SlotsForDate(fecha time.Time, reservas []Hora, now time.Time) []Slot {
	if !c.Abierto(fecha) {
		return nil
	}
	dia := c.Dia(fecha)
	inicios := c.Inicios()
	slots := make([]Slot, 0, len(inicios))
	for _, h := range inicios {
		fin := c.Fin(h)
		n := 0
		for _, r := range reservas {
			if r >= h && r < fin {
				n++
			}
		}
		if n > c.Capacidad {
			// More rows than seats can only come from a capacity change; never report
			// a negative remainder.
			n = c.Capacidad
		}
		slots = append(slots, Slot{
			Fecha:      dia,
			Inicio:     h,
			Fin:        fin,
			Capacidad:  c.Capacidad,
			Reservadas: n,
			Disponible: n < c.Capacidad && c.Instante(dia, h).After(now),
		})
	}
	return slots
}

// Fechas yields the open days from the day of desde through desde + 7×semanas,
// inclusive. The sequence is finite and can be ranged over more than once.
func (c *Calendario) Fechas(desde time.Time, semanas int) iter.Seq[time.Time] {
	inicio := c.Dia(desde)
	fin := inicio.AddDate(0, 0, 7*NormalizarSemanas(semanas))
	return func(yield func(time.Time) bool) {
		for d := inicio; !d.After(fin); d = d.AddDate(0, 0, 1) {
			if !c.Abierto(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// FechasDisponibles filters Fechas down to the days with at least one available
// slot. reservas maps YYYY-MM-DD to that day's booked start times.
func (c *Calendario) FechasDisponibles(now time.Time, semanas int, reservas map[string][]Hora) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := range c.Fechas(now, semanas) {
			if !hayDisponible(c.SlotsForDate(d, reservas[d.Format(FormatoFecha)], now)) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Rango returns the first and last day scanned by Fechas.
func (c *Calendario) Rango(desde time.Time, semanas int) (time.Time, time.Time) {
	inicio := c.Dia(desde)
	return inicio, inicio.AddDate(0, 0, 7*NormalizarSemanas(semanas))
}

// NormalizarSemanas applies the default horizon and caps it.
func NormalizarSemanas(n int) int {
	switch {
	case n <= 0:
		return SemanasPorDefecto
	case n > SemanasMaximas:
		return SemanasMaximas
	}
	return n
}

func hayDisponible(slots []Slot) bool {
	for _, s := range slots {
		if s.Disponible {
			return true
		}
	}
	return false
}
