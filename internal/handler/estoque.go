package handler

import (
	"net/http"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type EstoqueHandler struct{ svc service.EstoqueService }

func NewEstoqueHandler(svc service.EstoqueService) *EstoqueHandler {
	return &EstoqueHandler{svc: svc}
}

// @Summary Entrada de material (compra) com custo médio
// @Tags estoque
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do material"
// @Param body body dto.EntradaMaterialRequest true "Quantidade e custo"
// @Success 201 {object} dto.MovimentacaoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/estoque/materiais/{id}/entrada [post]
func (h *EstoqueHandler) Entrada(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.EntradaMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarEntrada(c.Request.Context(), id, req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Ajuste manual de estoque (supervisor)
// @Tags estoque
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do material"
// @Param body body dto.AjusteMaterialRequest true "Delta com sinal e nota"
// @Success 201 {object} dto.MovimentacaoResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/estoque/materiais/{id}/ajuste [post]
func (h *EstoqueHandler) Ajuste(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AjusteMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Ajustar(c.Request.Context(), id, req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Movimentações do material, mais recentes primeiro
// @Tags estoque
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do material"
// @Param tipo query string false "ENTRADA, SAIDA ou AJUSTE"
// @Param lote_id query string false "Lote de origem"
// @Param page query int false "Página"
// @Param limit query int false "Itens por página"
// @Success 200 {object} dto.MovimentacaoListResponse
// @Router /v1/estoque/materiais/{id}/movimentacoes [get]
func (h *EstoqueHandler) Movimentacoes(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var filter dto.MovimentacaoFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	resp, err := h.svc.Movimentacoes(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Confere o saldo contra a soma das movimentações
// @Tags estoque
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do material"
// @Success 200 {object} dto.ConferenciaResponse
// @Router /v1/estoque/materiais/{id}/conferencia [get]
func (h *EstoqueHandler) Conferencia(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Conferir(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Materiais no ou abaixo do estoque mínimo
// @Tags estoque
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AlertaEstoqueResponse
// @Router /v1/estoque/alertas [get]
func (h *EstoqueHandler) Alertas(c *gin.Context) {
	resp, err := h.svc.Alertas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
