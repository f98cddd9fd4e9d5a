package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoteRepository stores WIP batches and their stage event log.
// Every mutating *Tx method is conditional on the stage and quantity the
// caller read; a mismatch yields ErrConflito.
type LoteRepository interface {
	// CreateTx inserts the batch together with its Historico events.
	CreateTx(tx *gorm.DB, l *model.LoteProducao) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LoteProducao, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.LoteProducao, error)
	ListByEtapa(ctx context.Context, etapa model.Etapa) ([]model.LoteProducao, error)
	ListAll(ctx context.Context) ([]model.LoteProducao, error)
	// ListByOrigem returns every live batch descended from one start call.
	ListByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.LoteProducao, error)

	// MoverTx changes stage (and any extra columns) of the whole batch.
	MoverTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade int, campos map[string]any) error
	// ReduzirTx subtracts qtd from a batch that still holds quantidade units.
	ReduzirTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade, qtd int) error
	// DeleteTx removes the batch (and its events) if it still holds quantidade units.
	DeleteTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade int) error
	CreateEventosTx(tx *gorm.DB, eventos []model.EventoEtapa) error

	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func comHistorico(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Historico", func(db *gorm.DB) *gorm.DB {
		return db.Order("ocorrido_em ASC")
	})
}

func (r *loteRepo) CreateTx(tx *gorm.DB, l *model.LoteProducao) error {
	return tx.Omit("Produto", "Encomenda").Create(l).Error
}

func (r *loteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LoteProducao, error) {
	var l model.LoteProducao
	err := comHistorico(r.db.WithContext(ctx)).
		Preload("Produto").
		Preload("Encomenda").
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loteRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.LoteProducao, error) {
	var l model.LoteProducao
	if err := comHistorico(tx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loteRepo) ListByEtapa(ctx context.Context, etapa model.Etapa) ([]model.LoteProducao, error) {
	var lotes []model.LoteProducao
	err := comHistorico(r.db.WithContext(ctx)).
		Preload("Produto").
		Preload("Encomenda").
		Where("etapa = ?", etapa).
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListAll(ctx context.Context) ([]model.LoteProducao, error) {
	var lotes []model.LoteProducao
	err := comHistorico(r.db.WithContext(ctx)).
		Preload("Produto").
		Preload("Encomenda").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) ListByOrigem(ctx context.Context, origemID uuid.UUID) ([]model.LoteProducao, error) {
	var lotes []model.LoteProducao
	err := comHistorico(r.db.WithContext(ctx)).
		Preload("Produto").
		Preload("Encomenda").
		Where("lote_origem_id = ?", origemID).
		Order("created_at ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) MoverTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade int, campos map[string]any) error {
	res := tx.Model(&model.LoteProducao{}).
		Where("id = ? AND etapa = ? AND quantidade = ?", id, etapa, quantidade).
		Updates(campos)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

func (r *loteRepo) ReduzirTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade, qtd int) error {
	res := tx.Model(&model.LoteProducao{}).
		Where("id = ? AND etapa = ? AND quantidade = ? AND quantidade > ?", id, etapa, quantidade, qtd).
		Update("quantidade", gorm.Expr("quantidade - ?", qtd))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

func (r *loteRepo) DeleteTx(tx *gorm.DB, id uuid.UUID, etapa model.Etapa, quantidade int) error {
	// Events go first; a conflict below rolls them back with the tx.
	if err := tx.Where("lote_id = ?", id).Delete(&model.EventoEtapa{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ? AND etapa = ? AND quantidade = ?", id, etapa, quantidade).
		Delete(&model.LoteProducao{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

func (r *loteRepo) CreateEventosTx(tx *gorm.DB, eventos []model.EventoEtapa) error {
	if len(eventos) == 0 {
		return nil
	}
	return tx.Create(&eventos).Error
}
