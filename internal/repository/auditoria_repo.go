package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"gorm.io/gorm"
)

type AuditoriaRepository interface {
	Create(ctx context.Context, r *model.RegistroAuditoria) error
	ListByRegistro(ctx context.Context, tabela, registroID string) ([]model.RegistroAuditoria, error)
}

type auditoriaRepo struct{ db *gorm.DB }

func NewAuditoriaRepository(db *gorm.DB) AuditoriaRepository { return &auditoriaRepo{db: db} }

func (r *auditoriaRepo) Create(ctx context.Context, reg *model.RegistroAuditoria) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *auditoriaRepo) ListByRegistro(ctx context.Context, tabela, registroID string) ([]model.RegistroAuditoria, error) {
	var rows []model.RegistroAuditoria
	err := r.db.WithContext(ctx).
		Where("tabela = ? AND registro_id = ?", tabela, registroID).
		Order("ocorrido_em ASC").
		Find(&rows).Error
	return rows, err
}
