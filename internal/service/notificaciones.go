package service

import (
	"context"
	"fmt"
	"strings"

	"entrepeques/internal/agenda"
	"entrepeques/internal/model"
	"entrepeques/internal/worker"

	"github.com/rs/zerolog/log"
)

var diasSemana = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var meses = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
	"agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// fechaLarga renders "martes 4 de marzo de 2025".
func fechaLarga(c *model.Cita) string {
	d := c.Fecha
	return fmt.Sprintf("%s %d de %s de %d", diasSemana[d.Weekday()], d.Day(), meses[d.Month()-1], d.Year())
}

// confirmacionCita builds the client and store emails for a new booking. The
// client email is omitted when the client left none; the store email when
// storeEmail is empty.
func confirmacionCita(c *model.Cita, tienda, storeEmail string) []worker.EmailJobPayload {
	var b strings.Builder
	for _, it := range c.Items {
		nombre := it.SubcategoriaID.String()
		if it.Subcategoria != nil {
			nombre = it.Subcategoria.Nombre
		}
		fmt.Fprintf(&b, "- %d × %s", it.Cantidad, nombre)
		if it.Descripcion != "" {
			fmt.Fprintf(&b, " (%s)", it.Descripcion)
		}
		b.WriteString("\n")
	}
	items := b.String()
	cuando := fmt.Sprintf("%s de %s a %s", fechaLarga(c), c.HoraInicio, c.HoraFin)

	var out []worker.EmailJobPayload
	if c.ClienteEmail != nil && *c.ClienteEmail != "" {
		out = append(out, worker.EmailJobPayload{
			ToEmail: *c.ClienteEmail,
			Subject: fmt.Sprintf("Cita confirmada - %s a las %s", c.Fecha.Format(agenda.FormatoFecha), c.HoraInicio),
			Body: fmt.Sprintf("Hola %s,\n\nTu cita en %s quedó agendada para el %s.\n\nArtículos:\n%s\n"+
				"Recuerda traer los artículos limpios y en excelente estado.\n",
				c.ClienteNombre, tienda, cuando, items),
		})
	}
	if storeEmail != "" {
		out = append(out, worker.EmailJobPayload{
			ToEmail: storeEmail,
			Subject: fmt.Sprintf("Nueva cita - %s - %s %s", c.ClienteNombre, c.Fecha.Format(agenda.FormatoFecha), c.HoraInicio),
			Body: fmt.Sprintf("Cliente: %s\nTeléfono: %s\nCuándo: %s\nFolio: %s\n\nArtículos:\n%s",
				c.ClienteNombre, c.ClienteTelefono, cuando, c.ID, items),
		})
	}
	return out
}

// encolar queues every payload. Failures are logged and never surface to the
// caller: the booking is already committed.
func encolar(ctx context.Context, n Notifier, payloads []worker.EmailJobPayload) {
	if n == nil {
		return
	}
	for _, p := range payloads {
		if err := n.EnqueueEmail(ctx, p); err != nil {
			log.Warn().Err(err).Str("to", p.ToEmail).Str("subject", p.Subject).Msg("failed to enqueue email")
		}
	}
}
