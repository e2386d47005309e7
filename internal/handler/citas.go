package handler

import (
	"net/http"
	"strconv"

	"entrepeques/internal/apierror"
	"entrepeques/internal/dto"
	"entrepeques/internal/middleware"
	"entrepeques/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CitasHandler struct{ svc service.CitaService }

func NewCitasHandler(svc service.CitaService) *CitasHandler { return &CitasHandler{svc: svc} }

// ── Público ───────────────────────────────────────────────────────────────────

// Subcategorias godoc
// @Summary      Subcategorías para el formulario de citas
// @Tags         citas
// @Produce      json
// @Success      200 {array} dto.SubcategoriaReservaResponse
// @Router       /v1/citas/subcategorias [get]
func (h *CitasHandler) Subcategorias(c *gin.Context) {
	resp, err := h.svc.Subcategorias(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Horarios godoc
// @Summary      Horarios de un día
// @Description  Devuelve los horarios del día con su ocupación. Un día cerrado no tiene horarios.
// @Tags         citas
// @Produce      json
// @Param        fecha path     string true "YYYY-MM-DD"
// @Success      200   {object} dto.HorariosResponse
// @Failure      400   {object} apierror.APIError
// @Router       /v1/citas/horarios/{fecha} [get]
func (h *CitasHandler) Horarios(c *gin.Context) {
	resp, err := h.svc.Horarios(c.Request.Context(), c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FechasDisponibles godoc
// @Summary      Fechas con horarios libres
// @Tags         citas
// @Produce      json
// @Param        weeks_ahead query    int false "Semanas hacia adelante (default 12, máx. 52)"
// @Success      200         {object} dto.FechasDisponiblesResponse
// @Failure      400         {object} apierror.APIError
// @Router       /v1/citas/fechas-disponibles [get]
func (h *CitasHandler) FechasDisponibles(c *gin.Context) {
	semanas := 0
	if raw := c.Query("weeks_ahead"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apierror.Newf(apierror.KindInvalidInput, "weeks_ahead debe ser un número"))
			return
		}
		semanas = n
	}
	resp, err := h.svc.FechasDisponibles(c.Request.Context(), semanas)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BuscarClientes godoc
// @Summary      Buscar cliente por teléfono
// @Description  Solo devuelve id y nombre.
// @Tags         citas
// @Produce      json
// @Param        phone query    string true "Teléfono o fragmento (mín. 3 dígitos)"
// @Success      200   {array}  dto.ClienteBusquedaResponse
// @Failure      400   {object} apierror.APIError
// @Router       /v1/citas/clientes/buscar [get]
func (h *CitasHandler) BuscarClientes(c *gin.Context) {
	resp, err := h.svc.BuscarClientes(c.Request.Context(), c.Query("phone"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reservar godoc
// @Summary      Agendar una cita
// @Description  Reserva un horario. Dos solicitudes por el último lugar nunca ganan ambas.
// @Tags         citas
// @Accept       json
// @Produce      json
// @Param        body body     dto.CrearCitaRequest true "Cita"
// @Success      201  {object} dto.CitaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/citas [post]
func (h *CitasHandler) Reservar(c *gin.Context) {
	var req dto.CrearCitaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reservar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Nota godoc
// @Summary      Nota pública del formulario de citas
// @Tags         citas
// @Produce      json
// @Success      200 {object} dto.NotaCitasResponse
// @Router       /v1/citas/nota [get]
func (h *CitasHandler) Nota(c *gin.Context) {
	resp, err := h.svc.Nota(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Administración ────────────────────────────────────────────────────────────

// Listar godoc
// @Summary      Listar citas
// @Tags         citas-admin
// @Produce      json
// @Security     BearerAuth
// @Param        desde  query string false "YYYY-MM-DD"
// @Param        hasta  query string false "YYYY-MM-DD"
// @Param        status query string false "scheduled | completed | cancelled | no_show"
// @Param        search query string false "Nombre o teléfono"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 20)"
// @Success      200    {object} dto.CitaListResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/citas/admin [get]
func (h *CitasHandler) Listar(c *gin.Context) {
	var filter dto.CitaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Stats godoc
// @Summary      Contadores de citas
// @Tags         citas-admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.CitaStatsResponse
// @Router       /v1/citas/admin/stats [get]
func (h *CitasHandler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ToggleCompras godoc
// @Summary      Activar o pausar compras de una subcategoría
// @Tags         citas-admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la subcategoría"
// @Success      200 {object} dto.SubcategoriaReservaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/citas/admin/subcategorias/{id}/toggle [put]
func (h *CitasHandler) ToggleCompras(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ToggleCompras(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Obtener cita
// @Tags         citas-admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la cita"
// @Success      200 {object} dto.CitaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/citas/admin/{id} [get]
func (h *CitasHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary      Cancelar cita
// @Description  Libera el horario. Requiere motivo.
// @Tags         citas-admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "UUID de la cita"
// @Param        body body     dto.CancelarCitaRequest true "Motivo"
// @Success      200  {object} dto.CitaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/citas/admin/{id}/cancelar [put]
func (h *CitasHandler) Cancelar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelarCitaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var por *uuid.UUID
	if claims := middleware.GetClaims(c); claims != nil {
		if uid, err := uuid.Parse(claims.UserID); err == nil {
			por = &uid
		}
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, por, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ActualizarEstado godoc
// @Summary      Marcar cita como completada o no asistió
// @Tags         citas-admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                          true "UUID de la cita"
// @Param        body body     dto.ActualizarEstadoCitaRequest true "Estado"
// @Success      200  {object} dto.CitaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/citas/admin/{id}/estado [put]
func (h *CitasHandler) ActualizarEstado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarEstadoCitaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarEstado(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ActualizarNota godoc
// @Summary      Editar la nota pública
// @Tags         citas-admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.NotaCitasRequest true "Nota"
// @Success      200  {object} dto.NotaCitasResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/citas/admin/nota [put]
func (h *CitasHandler) ActualizarNota(c *gin.Context) {
	var req dto.NotaCitasRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarNota(c.Request.Context(), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
