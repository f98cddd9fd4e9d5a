package handler

import (
	"net/http"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProdutosHandler struct {
	receitas service.ReceitaService
	estoque  service.EstoqueService
}

func NewProdutosHandler(receitas service.ReceitaService, estoque service.EstoqueService) *ProdutosHandler {
	return &ProdutosHandler{receitas: receitas, estoque: estoque}
}

// Materiais resolves the raw materials for ?quantidade= units (default 1).
// @Summary Materiais necessários para produzir o produto
// @Tags produtos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param quantidade query number false "Unidades (padrão 1)"
// @Success 200 {object} dto.ResolucaoResponse
// @Failure 404 {object} apierror.APIError
// @Failure 500 {object} apierror.APIError
// @Router /v1/produtos/{id}/materiais [get]
func (h *ProdutosHandler) Materiais(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	qtd := decimal.NewFromInt(1)
	if raw := c.Query("quantidade"); raw != "" {
		q, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, apperror.New(apperror.CodeValidacao, "quantidade inválida"))
			return
		}
		qtd = q
	}
	resp, err := h.receitas.Resolucao(c.Request.Context(), id, qtd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Estoque efetivo do produto (kits pelo menor componente)
// @Tags produtos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Success 200 {object} dto.EstoqueProdutoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/produtos/{id}/estoque [get]
func (h *ProdutosHandler) Estoque(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.estoque.EstoqueEfetivo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Baixa withdraws finished goods; the product comes from the path.
// @Summary Baixa de produto acabado
// @Tags produtos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param body body dto.BaixaAcabadoRequest true "Quantidade e variante"
// @Success 200 {object} dto.BaixaAcabadoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/produtos/{id}/baixa [post]
func (h *ProdutosHandler) Baixa(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.BaixaAcabadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidacao, err, "JSON inválido"))
		return
	}
	req.ProdutoID = id.String()
	if !validateStruct(c, &req) {
		return
	}
	resp, err := h.estoque.BaixarAcabado(c.Request.Context(), req, middleware.GetOperador(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
