package handler

import (
	"net/http"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditoriaHandler struct{ svc service.ConsultaAuditoria }

func NewAuditoriaHandler(svc service.ConsultaAuditoria) *AuditoriaHandler {
	return &AuditoriaHandler{svc: svc}
}

// Listar godoc
// @Summary Trilha de auditoria de um registro
// @Tags auditoria
// @Produce json
// @Security BearerAuth
// @Param tabela path string true "Tabela auditada (ex.: production_wip)"
// @Param id path string true "ID do registro"
// @Success 200 {array} dto.RegistroAuditoriaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/auditoria/{tabela}/{id} [get]
func (h *AuditoriaHandler) Listar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), c.Param("tabela"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
