package service

import (
	"context"
	"encoding/json"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/google/uuid"
)

// tabelasAuditadas are the tables whose changes go through a Trilha.
var tabelasAuditadas = map[string]bool{
	"commission_items":       true,
	"commission_orders":      true,
	"inventory_transactions": true,
	"materials":              true,
	"production_history":     true,
	"production_losses":      true,
	"production_wip":         true,
	"products":               true,
	"variants":               true,
}

// ConsultaAuditoria reads the audit log persisted by the queue workers.
type ConsultaAuditoria interface {
	// Listar returns the changes of one record, oldest first.
	Listar(ctx context.Context, tabela string, registroID uuid.UUID) ([]dto.RegistroAuditoriaResponse, error)
}

type consultaAuditoria struct{ repo repository.AuditoriaRepository }

func NewConsultaAuditoria(repo repository.AuditoriaRepository) ConsultaAuditoria {
	return &consultaAuditoria{repo: repo}
}

func (s *consultaAuditoria) Listar(ctx context.Context, tabela string, registroID uuid.UUID) ([]dto.RegistroAuditoriaResponse, error) {
	if !tabelasAuditadas[tabela] {
		return nil, apperror.Newf(apperror.CodeValidacao, "tabela sem auditoria: %s", tabela)
	}
	rows, err := s.repo.ListByRegistro(ctx, tabela, registroID.String())
	if err != nil {
		return nil, err
	}
	out := make([]dto.RegistroAuditoriaResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.RegistroAuditoriaResponse{
			ID:          r.ID.String(),
			Acao:        r.Acao,
			Tabela:      r.Tabela,
			RegistroID:  r.RegistroID,
			Anterior:    snapshotJSON(r.Anterior),
			Novo:        snapshotJSON(r.Novo),
			UsuarioID:   r.UsuarioID,
			UsuarioNome: r.UsuarioNome,
			OcorridoEm:  r.OcorridoEm,
		})
	}
	return out, nil
}

func snapshotJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
