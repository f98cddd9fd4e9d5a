package handler

import (
	"net/http"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type ProducaoHandler struct {
	producao service.ProducaoService
	perdas   service.PerdaService
	registro service.RegistroLotes
}

func NewProducaoHandler(producao service.ProducaoService, perdas service.PerdaService, registro service.RegistroLotes) *ProducaoHandler {
	return &ProducaoHandler{producao: producao, perdas: perdas, registro: registro}
}

// Iniciar godoc
// @Summary Inicia um lote de produção na Fila de Espera
// @Tags producao
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.IniciarProducaoRequest true "Produto, quantidade e encomenda opcional"
// @Success 201 {object} dto.IniciarProducaoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/producao/lotes [post]
func (h *ProducaoHandler) Iniciar(c *gin.Context) {
	var req dto.IniciarProducaoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.producao.Iniciar(c.Request.Context(), req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Consulta um lote com seu histórico de etapas
// @Tags producao
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do lote"
// @Success 200 {object} dto.LoteResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/producao/lotes/{id} [get]
func (h *ProducaoHandler) Obter(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.registro.Obter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Avança o lote (ou parte dele) para a etapa seguinte
// @Tags producao
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do lote"
// @Param body body dto.AvancarLoteRequest true "Origem, destino e quantidade"
// @Success 200 {object} dto.AvancoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/producao/lotes/{id}/avancar [post]
func (h *ProducaoHandler) Avancar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AvancarLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.producao.Avancar(c.Request.Context(), id, req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Finaliza unidades que saíram da Queima de Alta
// @Tags producao
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do lote"
// @Param body body dto.FinalizarLoteRequest true "Quantidade finalizada"
// @Success 200 {object} dto.FinalizacaoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/producao/lotes/{id}/finalizar [post]
func (h *ProducaoHandler) Finalizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.FinalizarLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.producao.Finalizar(c.Request.Context(), id, req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Registra quebra; lotes de encomenda geram reposição
// @Tags producao
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do lote"
// @Param body body dto.RegistrarPerdaRequest true "Quantidade e motivo"
// @Success 201 {object} dto.PerdaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/producao/lotes/{id}/perdas [post]
func (h *ProducaoHandler) RegistrarPerda(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RegistrarPerdaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.perdas.RegistrarPerda(c.Request.Context(), id, req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Quadro returns the whole board, or one column with ?etapa=.
// @Summary Quadro Kanban da produção
// @Tags producao
// @Produce json
// @Security BearerAuth
// @Param etapa query string false "Somente uma coluna"
// @Success 200 {object} dto.QuadroResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/producao/quadro [get]
func (h *ProducaoHandler) Quadro(c *gin.Context) {
	if etapa := c.Query("etapa"); etapa != "" {
		resp, err := h.registro.ListarPorEtapa(c.Request.Context(), model.Etapa(etapa))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	resp, err := h.registro.Quadro(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Linhagem de um lote: lotes vivos, finalizadas e perdidas
// @Tags producao
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do lote de origem"
// @Success 200 {object} dto.LinhagemResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/producao/lotes/{id}/linhagem [get]
func (h *ProducaoHandler) Linhagem(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.registro.ListarLinhagem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
