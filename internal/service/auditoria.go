package service

import (
	"context"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Auditoria is the fire-and-forget audit sink. Implementations must not
// block for long and never make the caller fail.
type Auditoria interface {
	Registrar(ctx context.Context, ev model.EventoAuditoria)
}

type auditoriaLog struct{}

// NewAuditoriaLog returns a sink that only writes the events to the log.
// Used when no queue is configured.
func NewAuditoriaLog() Auditoria { return auditoriaLog{} }

func (auditoriaLog) Registrar(_ context.Context, ev model.EventoAuditoria) {
	log.Info().
		Str("acao", ev.Acao).
		Str("tabela", ev.Tabela).
		Str("registro_id", ev.RegistroID).
		Str("usuario", ev.UsuarioNome).
		Msg("auditoria")
}

// Trilha collects the audit events of one operation. Events are only
// published after the transaction commits; a rolled-back operation
// publishes nothing.
type Trilha struct {
	operador model.Operador
	eventos  []model.EventoAuditoria
}

func NovaTrilha(op model.Operador) *Trilha { return &Trilha{operador: op} }

func (t *Trilha) Operador() model.Operador {
	if t == nil {
		return model.Operador{}
	}
	return t.operador
}

func (t *Trilha) Registrar(acao, tabela string, id uuid.UUID, anterior, novo any) {
	if t == nil {
		return
	}
	t.eventos = append(t.eventos, model.EventoAuditoria{
		Acao:        acao,
		Tabela:      tabela,
		RegistroID:  id.String(),
		Anterior:    anterior,
		Novo:        novo,
		UsuarioID:   t.operador.ID.String(),
		UsuarioNome: t.operador.Nome,
		OcorridoEm:  time.Now().UTC(),
	})
}

func (t *Trilha) Eventos() []model.EventoAuditoria {
	if t == nil {
		return nil
	}
	return t.eventos
}

// Publicar hands every collected event to the sink and empties the trail.
func (t *Trilha) Publicar(ctx context.Context, aud Auditoria) {
	if t == nil || aud == nil {
		return
	}
	for _, ev := range t.eventos {
		aud.Registrar(ctx, ev)
	}
	t.eventos = nil
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
