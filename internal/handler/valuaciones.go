package handler

import (
	"net/http"
	"path/filepath"

	"entrepeques/internal/dto"
	"entrepeques/internal/service"

	"github.com/gin-gonic/gin"
)

type ValuacionesHandler struct{ svc service.ValuacionService }

func NewValuacionesHandler(svc service.ValuacionService) *ValuacionesHandler {
	return &ValuacionesHandler{svc: svc}
}

// Calcular godoc
// @Summary      Calcular precio de un artículo
// @Description  Cotiza un artículo con la política de precios vigente. No guarda nada.
// @Tags         valuaciones
// @Accept       json
// @Produce      json
// @Param        body body dto.CalcularValuacionRequest true "Artículo"
// @Success      200  {object} dto.ValuacionResultadoResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/valuaciones/calcular [post]
func (h *ValuacionesHandler) Calcular(c *gin.Context) {
	var req dto.CalcularValuacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Calcular(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CalcularLote godoc
// @Summary      Calcular precios en lote
// @Description  Cotiza varios artículos; los resultados conservan el orden. Si uno falla, no se devuelve ninguno.
// @Tags         valuaciones
// @Accept       json
// @Produce      json
// @Param        body body dto.CalcularLoteRequest true "Artículos"
// @Success      200  {object} dto.CalcularLoteResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/valuaciones/calcular-lote [post]
func (h *ValuacionesHandler) CalcularLote(c *gin.Context) {
	var req dto.CalcularLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CalcularLote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Crear godoc
// @Summary      Abrir una valuación
// @Tags         valuaciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearValuacionRequest true "Cliente"
// @Success      201  {object} dto.ValuacionResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/valuaciones [post]
func (h *ValuacionesHandler) Crear(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	var req dto.CrearValuacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AgregarItem godoc
// @Summary      Agregar artículo a una valuación
// @Description  Cotiza el artículo y guarda la cotización junto con sus características e imágenes.
// @Tags         valuaciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID de la valuación"
// @Param        body body dto.AgregarItemRequest true "Artículo"
// @Success      201  {object} dto.ValuacionItemResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/valuaciones/{id}/items [post]
func (h *ValuacionesHandler) AgregarItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Finalizar godoc
// @Summary      Cerrar una valuación
// @Description  Registra precios finales y calcula totales. Al completarse se envía la oferta en PDF al cliente.
// @Tags         valuaciones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                        true "UUID de la valuación"
// @Param        body body dto.FinalizarValuacionRequest true "Cierre"
// @Success      200  {object} dto.ValuacionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/valuaciones/{id}/finalizar [put]
func (h *ValuacionesHandler) Finalizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.FinalizarValuacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Finalizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Obtener valuación
// @Tags         valuaciones
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la valuación"
// @Success      200 {object} dto.ValuacionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/valuaciones/{id} [get]
func (h *ValuacionesHandler) Obtener(c *gin.Context) {
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

// Listar godoc
// @Summary      Listar valuaciones
// @Tags         valuaciones
// @Produce      json
// @Security     BearerAuth
// @Param        client_id query string false "UUID del cliente"
// @Param        status    query string false "pending | completed | cancelled"
// @Param        desde     query string false "YYYY-MM-DD"
// @Param        hasta     query string false "YYYY-MM-DD"
// @Param        page      query int    false "Página (default 1)"
// @Param        limit     query int    false "Registros por página (default 20)"
// @Success      200 {object} dto.ValuacionListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/valuaciones [get]
func (h *ValuacionesHandler) Listar(c *gin.Context) {
	var filter dto.ValuacionFilter
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

// DescargarPDF godoc
// @Summary      Descargar oferta en PDF
// @Tags         valuaciones
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id  path string true "UUID de la valuación"
// @Success      200 {file} binary
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /v1/valuaciones/{id}/pdf [get]
func (h *ValuacionesHandler) DescargarPDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.GenerarOfertaPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
