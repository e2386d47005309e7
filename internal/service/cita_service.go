package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"entrepeques/internal/agenda"
	"entrepeques/internal/apierror"
	"entrepeques/internal/dto"
	"entrepeques/internal/model"
	"entrepeques/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	claveNotaPublica    = "nota_publica"
	maxClientesBusqueda = 10
	minDigitosBusqueda  = 3
)

type CitaService interface {
	// Public booking surface
	Subcategorias(ctx context.Context) ([]dto.SubcategoriaReservaResponse, error)
	Horarios(ctx context.Context, fecha string) (*dto.HorariosResponse, error)
	FechasDisponibles(ctx context.Context, semanas int) (*dto.FechasDisponiblesResponse, error)
	BuscarClientes(ctx context.Context, telefono string) ([]dto.ClienteBusquedaResponse, error)
	Reservar(ctx context.Context, req dto.CrearCitaRequest) (*dto.CitaResponse, error)
	Nota(ctx context.Context) (*dto.NotaCitasResponse, error)

	// Back office
	Obtener(ctx context.Context, id uuid.UUID) (*dto.CitaResponse, error)
	Listar(ctx context.Context, filter dto.CitaFilter) (*dto.CitaListResponse, error)
	Stats(ctx context.Context) (*dto.CitaStatsResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID, por *uuid.UUID, motivo string) (*dto.CitaResponse, error)
	MarcarCompletada(ctx context.Context, id uuid.UUID, notas *string) (*dto.CitaResponse, error)
	MarcarNoAsistio(ctx context.Context, id uuid.UUID, notas *string) (*dto.CitaResponse, error)
	ActualizarEstado(ctx context.Context, id uuid.UUID, req dto.ActualizarEstadoCitaRequest) (*dto.CitaResponse, error)
	ToggleCompras(ctx context.Context, subcategoriaID uuid.UUID) (*dto.SubcategoriaReservaResponse, error)
	ActualizarNota(ctx context.Context, nota string) (*dto.NotaCitasResponse, error)
}

// CitaOptions are the business rules of the booking form.
type CitaOptions struct {
	MinArticulos int           // non-clothing items needed to book
	MinPrendas   int           // garments needed to book
	Timeout      time.Duration // bound on one booking attempt
	Tienda       string
	StoreEmail   string
}

type citaService struct {
	citas    repository.CitaRepository
	subcats  repository.SubcategoriaRepository
	clientes repository.ClienteRepository
	ajustes  repository.AjusteRepository
	cal      *agenda.Calendario
	notifier Notifier
	opts     CitaOptions
	now      func() time.Time
}

func NewCitaService(
	citas repository.CitaRepository,
	subcats repository.SubcategoriaRepository,
	clientes repository.ClienteRepository,
	ajustes repository.AjusteRepository,
	cal *agenda.Calendario,
	notifier Notifier,
	opts CitaOptions,
) CitaService {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &citaService{
		citas:    citas,
		subcats:  subcats,
		clientes: clientes,
		ajustes:  ajustes,
		cal:      cal,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// ── Disponibilidad ────────────────────────────────────────────────────────────

func (s *citaService) Subcategorias(ctx context.Context) ([]dto.SubcategoriaReservaResponse, error) {
	subs, err := s.subcats.ListParaReserva(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SubcategoriaReservaResponse, len(subs))
	for i := range subs {
		out[i] = subcategoriaResponse(&subs[i])
	}
	return out, nil
}

func (s *citaService) Horarios(ctx context.Context, fecha string) (*dto.HorariosResponse, error) {
	dia, err := s.cal.ParseFecha(fecha)
	if err != nil {
		return nil, err
	}
	reservas, err := s.reservas(ctx, dia, dia)
	if err != nil {
		return nil, err
	}

	slots := s.cal.SlotsForDate(dia, reservas[dia.Format(agenda.FormatoFecha)], s.now())
	out := &dto.HorariosResponse{
		Date:  dia.Format(agenda.FormatoFecha),
		Open:  s.cal.Abierto(dia),
		Slots: make([]dto.SlotResponse, len(slots)),
	}
	for i, sl := range slots {
		out.Slots[i] = dto.SlotResponse{
			Start:       sl.Inicio.String(),
			End:         sl.Fin.String(),
			Capacity:    sl.Capacidad,
			Booked:      sl.Reservadas,
			IsAvailable: sl.Disponible,
		}
	}
	return out, nil
}

func (s *citaService) FechasDisponibles(ctx context.Context, semanas int) (*dto.FechasDisponiblesResponse, error) {
	semanas = agenda.NormalizarSemanas(semanas)
	now := s.now()
	desde, hasta := s.cal.Rango(now, semanas)
	reservas, err := s.reservas(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}

	out := &dto.FechasDisponiblesResponse{WeeksAhead: semanas, Dates: []string{}}
	for d := range s.cal.FechasDisponibles(now, semanas, reservas) {
		out.Dates = append(out.Dates, d.Format(agenda.FormatoFecha))
	}
	return out, nil
}

// reservas loads the booked start times per day between desde and hasta.
func (s *citaService) reservas(ctx context.Context, desde, hasta time.Time) (map[string][]agenda.Hora, error) {
	raw, err := s.citas.HorasReservadas(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]agenda.Hora, len(raw))
	for dia, horas := range raw {
		for _, h := range horas {
			hh, err := agenda.ParseHora(h)
			if err != nil {
				log.Warn().Str("fecha", dia).Str("hora", h).Msg("stored appointment has an unreadable start time")
				continue
			}
			out[dia] = append(out[dia], hh)
		}
	}
	return out, nil
}

func (s *citaService) BuscarClientes(ctx context.Context, telefono string) ([]dto.ClienteBusquedaResponse, error) {
	digitos := soloDigitos(telefono)
	if len(digitos) < minDigitosBusqueda {
		return nil, apierror.Newf(apierror.KindInvalidInput, "Ingresa al menos %d dígitos del teléfono", minDigitosBusqueda)
	}
	clientes, err := s.clientes.BuscarPorTelefono(ctx, digitos, maxClientesBusqueda)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClienteBusquedaResponse, len(clientes))
	for i, c := range clientes {
		out[i] = dto.ClienteBusquedaResponse{ID: c.ID.String(), Name: c.Nombre}
	}
	return out, nil
}

// ── Reservar ──────────────────────────────────────────────────────────────────
// Everything that does not depend on other bookings is checked first. The
// capacity check and the insert then run inside one transaction holding the
// slot's advisory lock, so two requests for the last seat cannot both win.

func (s *citaService) Reservar(ctx context.Context, req dto.CrearCitaRequest) (*dto.CitaResponse, error) {
	if len(req.Items) == 0 {
		return nil, apierror.Newf(apierror.KindEmptyItemList, "Debes agregar al menos un artículo")
	}
	clienteID, err := validarCliente(req)
	if err != nil {
		return nil, err
	}

	dia, inicio, err := s.validarTurno(req.AppointmentDate, req.StartTime)
	if err != nil {
		return nil, err
	}
	fin := s.cal.Fin(inicio)

	items, subs, err := s.validarItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var cita *model.Cita
	err = s.citas.ConTurnoBloqueado(ctx, dia, inicio.String(), func(tx repository.CitaTx) error {
		n, err := tx.ContarActivas(ctx, dia, inicio.String(), fin.String())
		if err != nil {
			return err
		}
		if n >= int64(s.cal.Capacidad) {
			return apierror.Newf(apierror.KindSlotFull, "Este horario ya está reservado")
		}

		cliente, err := resolverCliente(ctx, tx, clienteID, req)
		if err != nil {
			return err
		}
		cita = &model.Cita{
			ClienteID:       cliente.ID,
			ClienteNombre:   cliente.Nombre,
			ClienteTelefono: cliente.Telefono,
			ClienteEmail:    cliente.Email,
			Fecha:           dia,
			HoraInicio:      inicio.String(),
			HoraFin:         fin.String(),
			Estado:          model.CitaProgramada,
			Items:           items,
		}
		if e := nonEmpty(req.ClientEmail); e != nil {
			cita.ClienteEmail = e
		}
		return tx.Crear(ctx, cita)
	})
	if err != nil {
		if apierror.KindOf(err) == "" {
			return nil, apierror.Unavailable(err)
		}
		return nil, err
	}

	for i := range cita.Items {
		cita.Items[i].Subcategoria = subs[cita.Items[i].SubcategoriaID]
	}
	log.Info().
		Str("cita_id", cita.ID.String()).
		Str("fecha", req.AppointmentDate).
		Str("hora", cita.HoraInicio).
		Msg("appointment booked")
	encolar(context.WithoutCancel(ctx), s.notifier, confirmacionCita(cita, s.opts.Tienda, s.opts.StoreEmail))

	out := citaResponse(cita)
	return &out, nil
}

func validarCliente(req dto.CrearCitaRequest) (*uuid.UUID, error) {
	if id := strings.TrimSpace(req.ClientID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, apierror.Newf(apierror.KindInvalidClient, "Cliente no válido")
		}
		return &parsed, nil
	}
	if strings.TrimSpace(req.ClientName) == "" || soloDigitos(req.ClientPhone) == "" {
		return nil, apierror.Newf(apierror.KindInvalidClient, "Indica un cliente registrado o nombre y teléfono")
	}
	return nil, nil
}

// validarTurno checks that the slot exists on an open, non-past day and has not started.
func (s *citaService) validarTurno(fecha, hora string) (time.Time, agenda.Hora, error) {
	dia, err := s.cal.ParseFecha(fecha)
	if err != nil {
		return time.Time{}, 0, err
	}
	inicio, err := agenda.ParseHora(hora)
	if err != nil {
		return time.Time{}, 0, err
	}
	now := s.now()
	if dia.Before(s.cal.Dia(now)) {
		return time.Time{}, 0, apierror.Newf(apierror.KindInvalidInput, "No se pueden agendar citas en fechas pasadas")
	}
	if !s.cal.Abierto(dia) {
		return time.Time{}, 0, apierror.Newf(apierror.KindInvalidInput, "No agendamos citas el %s", dia.Format(agenda.FormatoFecha))
	}
	if !s.cal.EsInicio(inicio) {
		return time.Time{}, 0, apierror.Newf(apierror.KindInvalidInput, "Horario no válido: %s", inicio)
	}
	if !s.cal.Instante(dia, inicio).After(now) {
		return time.Time{}, 0, apierror.Newf(apierror.KindInvalidInput, "El horario %s ya pasó", inicio)
	}
	return dia, inicio, nil
}

// validarItems applies the purchasing rules and returns the rows to insert plus
// the subcategories they reference.
func (s *citaService) validarItems(ctx context.Context, reqItems []dto.CitaItemRequest) ([]model.CitaItem, map[uuid.UUID]*model.Subcategoria, error) {
	for _, it := range reqItems {
		if !it.IsExcellentQuality {
			return nil, nil, apierror.Newf(apierror.KindInvalidInput, "Solo compramos artículos en excelente estado")
		}
	}

	ids := make([]uuid.UUID, 0, len(reqItems))
	parsed := make([]uuid.UUID, len(reqItems))
	for i, it := range reqItems {
		id, err := uuid.Parse(it.SubcategoryID)
		if err != nil {
			return nil, nil, apierror.Newf(apierror.KindInvalidInput, "Subcategoría no válida: %s", it.SubcategoryID)
		}
		parsed[i] = id
		ids = append(ids, id)
	}
	subs, err := s.subcats.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*model.Subcategoria, len(subs))
	for i := range subs {
		byID[subs[i].ID] = &subs[i]
	}

	var prendas, articulos int
	items := make([]model.CitaItem, len(reqItems))
	for i, it := range reqItems {
		sub, ok := byID[parsed[i]]
		if !ok || !sub.Activo {
			return nil, nil, apierror.Newf(apierror.KindInvalidInput, "Subcategoría no válida: %s", it.SubcategoryID)
		}
		if !sub.ComprasHabilitadas {
			return nil, nil, apierror.Newf(apierror.KindInvalidInput, "No estamos comprando %s por el momento", sub.Nombre)
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		if sub.EsRopa {
			prendas += qty
		} else {
			articulos += qty
		}
		items[i] = model.CitaItem{
			SubcategoriaID:   sub.ID,
			Orden:            i + 1,
			Descripcion:      strings.TrimSpace(it.Description),
			Cantidad:         qty,
			ExcelenteCalidad: it.IsExcellentQuality,
		}
	}

	if err := s.validarMinimos(prendas, articulos); err != nil {
		return nil, nil, err
	}
	return items, byID, nil
}

func (s *citaService) validarMinimos(prendas, articulos int) error {
	minP, minA := s.opts.MinPrendas, s.opts.MinArticulos
	switch {
	case articulos == 0 && prendas < minP:
		return apierror.Newf(apierror.KindInvalidInput, "Para ropa necesitas al menos %d prendas para agendar cita", minP)
	case prendas == 0 && articulos < minA:
		return apierror.Newf(apierror.KindInvalidInput, "Necesitas al menos %d artículos para agendar cita", minA)
	case prendas < minP && articulos < minA:
		return apierror.Newf(apierror.KindInvalidInput, "Necesitas al menos %d artículos (no ropa) o %d prendas de ropa", minA, minP)
	}
	return nil
}

// resolverCliente returns the registered client, or finds one by phone, or
// registers a new one. It runs under the slot lock.
func resolverCliente(ctx context.Context, tx repository.CitaTx, id *uuid.UUID, req dto.CrearCitaRequest) (*model.Cliente, error) {
	if id != nil {
		c, err := tx.ClientePorID(ctx, *id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Newf(apierror.KindInvalidClient, "Cliente no encontrado")
		}
		return c, err
	}

	telefono := soloDigitos(req.ClientPhone)
	c, err := tx.ClientePorTelefono(ctx, telefono)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = &model.Cliente{
		Nombre:   strings.TrimSpace(req.ClientName),
		Telefono: telefono,
		Email:    nonEmpty(req.ClientEmail),
		Activo:   true,
	}
	if err := tx.CrearCliente(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ── Back office ───────────────────────────────────────────────────────────────

func (s *citaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.CitaResponse, error) {
	c, err := s.citas.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Cita no encontrada")
	}
	out := citaResponse(c)
	return &out, nil
}

func (s *citaService) Listar(ctx context.Context, filter dto.CitaFilter) (*dto.CitaListResponse, error) {
	for _, f := range []string{filter.Desde, filter.Hasta} {
		if f == "" {
			continue
		}
		if _, err := s.cal.ParseFecha(f); err != nil {
			return nil, err
		}
	}
	citas, total, err := s.citas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.CitaListResponse{
		Data:  make([]dto.CitaResponse, len(citas)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range citas {
		out.Data[i] = citaResponse(&citas[i])
	}
	return out, nil
}

func (s *citaService) Stats(ctx context.Context) (*dto.CitaStatsResponse, error) {
	st, err := s.citas.Stats(ctx, s.cal.Dia(s.now()))
	if err != nil {
		return nil, err
	}
	return &dto.CitaStatsResponse{
		Total:     st.Total,
		Scheduled: st.Programada,
		Completed: st.Completada,
		Cancelled: st.Cancelada,
		NoShow:    st.NoAsistio,
		Today:     st.Hoy,
		ThisWeek:  st.Semana,
	}, nil
}

func (s *citaService) Cancelar(ctx context.Context, id uuid.UUID, por *uuid.UUID, motivo string) (*dto.CitaResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, apierror.Newf(apierror.KindMissingReason, "Indica el motivo de la cancelación")
	}
	now := s.now()
	return s.transicionar(ctx, id, map[string]interface{}{
		"estado":             model.CitaCancelada,
		"motivo_cancelacion": motivo,
		"cancelada_por":      por,
		"cancelada_en":       now,
	})
}

func (s *citaService) MarcarCompletada(ctx context.Context, id uuid.UUID, notas *string) (*dto.CitaResponse, error) {
	return s.transicionar(ctx, id, cambiosEstado(model.CitaCompletada, notas))
}

func (s *citaService) MarcarNoAsistio(ctx context.Context, id uuid.UUID, notas *string) (*dto.CitaResponse, error) {
	return s.transicionar(ctx, id, cambiosEstado(model.CitaNoAsistio, notas))
}

func (s *citaService) ActualizarEstado(ctx context.Context, id uuid.UUID, req dto.ActualizarEstadoCitaRequest) (*dto.CitaResponse, error) {
	switch req.Status {
	case model.CitaCompletada:
		return s.MarcarCompletada(ctx, id, req.Notes)
	case model.CitaNoAsistio:
		return s.MarcarNoAsistio(ctx, id, req.Notes)
	}
	return nil, apierror.Newf(apierror.KindInvalidInput, "Estado no válido: %q", req.Status)
}

func cambiosEstado(estado string, notas *string) map[string]interface{} {
	cambios := map[string]interface{}{"estado": estado}
	if notas != nil {
		cambios["notas"] = *notas
	}
	return cambios
}

// transicionar applies cambios only if the cita is still scheduled and tells a
// missing cita apart from one that already left that state.
func (s *citaService) transicionar(ctx context.Context, id uuid.UUID, cambios map[string]interface{}) (*dto.CitaResponse, error) {
	ok, err := s.citas.Transicionar(ctx, id, cambios)
	if err != nil {
		return nil, err
	}
	c, err := s.citas.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Cita no encontrada")
	}
	if !ok {
		return nil, apierror.Newf(apierror.KindInvalidTransition, "La cita no está programada (estado actual: %s)", c.Estado)
	}
	log.Info().Str("cita_id", id.String()).Interface("estado", cambios["estado"]).Msg("appointment status changed")
	out := citaResponse(c)
	return &out, nil
}

func (s *citaService) ToggleCompras(ctx context.Context, subcategoriaID uuid.UUID) (*dto.SubcategoriaReservaResponse, error) {
	sub, err := s.subcats.ToggleCompras(ctx, subcategoriaID)
	if err != nil {
		return nil, notFound(err, "Subcategoría no encontrada")
	}
	out := subcategoriaResponse(sub)
	return &out, nil
}

func (s *citaService) Nota(ctx context.Context) (*dto.NotaCitasResponse, error) {
	a, err := s.ajustes.Get(ctx, claveNotaPublica)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return &dto.NotaCitasResponse{}, nil
	}
	return notaResponse(a), nil
}

func (s *citaService) ActualizarNota(ctx context.Context, nota string) (*dto.NotaCitasResponse, error) {
	a, err := s.ajustes.Upsert(ctx, claveNotaPublica, strings.TrimSpace(nota))
	if err != nil {
		return nil, err
	}
	return notaResponse(a), nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func notaResponse(a *model.AjusteCita) *dto.NotaCitasResponse {
	out := &dto.NotaCitasResponse{Note: a.Valor}
	if !a.UpdatedAt.IsZero() {
		out.UpdatedAt = formatTimePtr(&a.UpdatedAt)
	}
	return out
}

func subcategoriaResponse(s *model.Subcategoria) dto.SubcategoriaReservaResponse {
	out := dto.SubcategoriaReservaResponse{
		ID:                s.ID.String(),
		Name:              s.Nombre,
		CategoryID:        s.CategoriaID.String(),
		IsClothing:        s.EsRopa,
		PurchasingEnabled: s.ComprasHabilitadas,
	}
	if s.Categoria != nil {
		out.CategoryName = s.Categoria.Nombre
	}
	return out
}

func citaResponse(c *model.Cita) dto.CitaResponse {
	out := dto.CitaResponse{
		ID:                 c.ID.String(),
		ClientID:           c.ClienteID.String(),
		ClientName:         c.ClienteNombre,
		ClientPhone:        c.ClienteTelefono,
		ClientEmail:        c.ClienteEmail,
		AppointmentDate:    c.Fecha.Format(agenda.FormatoFecha),
		StartTime:          c.HoraInicio,
		EndTime:            c.HoraFin,
		Status:             c.Estado,
		Notes:              c.Notas,
		CancellationReason: c.MotivoCancelacion,
		CancelledAt:        formatTimePtr(c.CanceladaEn),
		CreatedAt:          formatTime(c.CreatedAt),
		Items:              make([]dto.CitaItemResponse, len(c.Items)),
	}
	for i, it := range c.Items {
		out.Items[i] = dto.CitaItemResponse{
			SubcategoryID:      it.SubcategoriaID.String(),
			Description:        it.Descripcion,
			Quantity:           it.Cantidad,
			IsExcellentQuality: it.ExcelenteCalidad,
		}
		if it.Subcategoria != nil {
			out.Items[i].SubcategoryName = it.Subcategoria.Nombre
		}
	}
	return out
}
