package handler

import (
	"net/http"

	"entrepeques/internal/dto"
	"entrepeques/internal/service"

	"github.com/gin-gonic/gin"
)

type RopaHandler struct{ svc service.RopaService }

func NewRopaHandler(svc service.RopaService) *RopaHandler { return &RopaHandler{svc: svc} }

// Calcular godoc
// @Summary      Calcular precio de una prenda
// @Description  Usa la lista de precios de ropa; el grupo sale de category_group o de la subcategoría.
// @Tags         ropa
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CalcularRopaRequest true "Prenda"
// @Success      200  {object} dto.RopaResultadoResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ropa/calcular [post]
func (h *RopaHandler) Calcular(c *gin.Context) {
	var req dto.CalcularRopaRequest
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

// ListarPrecios godoc
// @Summary      Lista de precios de ropa
// @Tags         ropa
// @Produce      json
// @Security     BearerAuth
// @Param        grupo query string false "Grupo de ropa"
// @Success      200 {array}  dto.PrecioRopaResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/ropa/precios [get]
func (h *RopaHandler) ListarPrecios(c *gin.Context) {
	resp, err := h.svc.ListarPrecios(c.Request.Context(), c.Query("grupo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TiposPrenda godoc
// @Summary      Tipos de prenda de un grupo
// @Tags         ropa
// @Produce      json
// @Security     BearerAuth
// @Param        grupo path string true "Grupo de ropa"
// @Success      200 {array}  string
// @Failure      400 {object} apierror.APIError
// @Router       /v1/ropa/tipos/{grupo} [get]
func (h *RopaHandler) TiposPrenda(c *gin.Context) {
	resp, err := h.svc.TiposPrenda(c.Request.Context(), c.Param("grupo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
