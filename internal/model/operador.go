package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operador identifies the acting user. It is passed in by the caller for
// attribution; the engine never authenticates.
type Operador struct {
	ID   uuid.UUID
	Nome string
}

// Audit actions.
const (
	AcaoCriar     = "CREATE"
	AcaoAtualizar = "UPDATE"
	AcaoExcluir   = "DELETE"
)

// EventoAuditoria is what the engine reports on its audit side channel.
type EventoAuditoria struct {
	Acao        string    `json:"acao"`
	Tabela      string    `json:"tabela"`
	RegistroID  string    `json:"registro_id"`
	Anterior    any       `json:"anterior,omitempty"`
	Novo        any       `json:"novo,omitempty"`
	UsuarioID   string    `json:"usuario_id"`
	UsuarioNome string    `json:"usuario_nome"`
	OcorridoEm  time.Time `json:"ocorrido_em"`
}

// RegistroAuditoria is the persisted form written by the audit worker.
// Snapshots are stored as raw JSON text.
type RegistroAuditoria struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Acao        string    `gorm:"type:varchar(10);not null"`
	Tabela      string    `gorm:"not null;index"`
	RegistroID  string    `gorm:"not null;index"`
	Anterior    string    `gorm:"type:text"`
	Novo        string    `gorm:"type:text"`
	UsuarioID   string
	UsuarioNome string
	OcorridoEm  time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

func (RegistroAuditoria) TableName() string { return "audit_log" }

func (r *RegistroAuditoria) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
