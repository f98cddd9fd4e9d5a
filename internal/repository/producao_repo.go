package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProducaoRepository holds the immutable production records: losses and
// completions. Both tables are append-only.
type ProducaoRepository interface {
	CreatePerdaTx(tx *gorm.DB, p *model.PerdaProducao) error
	CreateHistoricoTx(tx *gorm.DB, h *model.HistoricoProducao) error
	// ListPerdasByOrigem and ListHistoricoByOrigem return the records of one
	// lineage, oldest first.
	ListPerdasByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.PerdaProducao, error)
	ListHistoricoByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.HistoricoProducao, error)
}

type producaoRepo struct{ db *gorm.DB }

func NewProducaoRepository(db *gorm.DB) ProducaoRepository { return &producaoRepo{db: db} }

func (r *producaoRepo) CreatePerdaTx(tx *gorm.DB, p *model.PerdaProducao) error {
	return tx.Create(p).Error
}

func (r *producaoRepo) CreateHistoricoTx(tx *gorm.DB, h *model.HistoricoProducao) error {
	return tx.Create(h).Error
}

func (r *producaoRepo) ListPerdasByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.PerdaProducao, error) {
	var rows []model.PerdaProducao
	err := r.db.WithContext(ctx).
		Where("lote_origem_id = ?", origemID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *producaoRepo) ListHistoricoByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.HistoricoProducao, error) {
	var rows []model.HistoricoProducao
	err := r.db.WithContext(ctx).
		Where("lote_origem_id = ?", origemID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
