package service

import (
	"context"
	"sort"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AjusteLote lists what changes on the units that move. Flags only go
// from false to true.
type AjusteLote struct {
	VarianteID         *uuid.UUID
	MateriaisDeduzidos bool
	EsmalteDeduzido    bool
}

// RegistroLotes is the WIP store.
type RegistroLotes interface {
	Obter(ctx context.Context, id uuid.UUID) (*dto.LoteResponse, error)
	// ListarPorEtapa returns the Kanban column order: priority DESC, start
	// date ASC, order due date ASC (no order last), creation time, id.
	ListarPorEtapa(ctx context.Context, etapa model.Etapa) ([]dto.LoteResponse, error)
	Quadro(ctx context.Context) (*dto.QuadroResponse, error)
	// ListarLinhagem returns the live batches of a lineage with its
	// finished and lost totals.
	ListarLinhagem(ctx context.Context, origemID uuid.UUID) (*dto.LinhagemResponse, error)

	CriarTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao) error
	// DividirTx moves qtd units of l to destino. Moving everything changes
	// the record in place and returns (l, nil); otherwise l keeps the
	// remainder and a new record with a copy of l's history is returned
	// as movido.
	DividirTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao, qtd int, destino model.Etapa, em time.Time, ajuste AjusteLote) (movido, restante *model.LoteProducao, err error)
	// ReduzirOuRemoverTx takes qtd units out of l, deleting the record when
	// none remain. evento, if given, is appended to a surviving record.
	ReduzirOuRemoverTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao, qtd int, evento *model.EventoEtapa) (*model.LoteProducao, error)
}

type registroLotes struct {
	repo     repository.LoteRepository
	producao repository.ProducaoRepository
}

func NewRegistroLotes(repo repository.LoteRepository, producao repository.ProducaoRepository) RegistroLotes {
	return &registroLotes{repo: repo, producao: producao}
}

func (r *registroLotes) Obter(ctx context.Context, id uuid.UUID) (*dto.LoteResponse, error) {
	l, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, traduzir(err, "lote")
	}
	resp := loteToResponse(l)
	return &resp, nil
}

func (r *registroLotes) ListarPorEtapa(ctx context.Context, etapa model.Etapa) ([]dto.LoteResponse, error) {
	if !etapa.Valida() {
		return nil, apperror.Newf(apperror.CodeValidacao, "etapa desconhecida: %s", etapa)
	}
	lotes, err := r.repo.ListByEtapa(ctx, etapa)
	if err != nil {
		return nil, err
	}
	ordenarLotes(lotes)
	return lotesToResponse(lotes), nil
}

func (r *registroLotes) Quadro(ctx context.Context) (*dto.QuadroResponse, error) {
	lotes, err := r.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	porEtapa := make(map[model.Etapa][]model.LoteProducao, len(model.Etapas))
	for _, l := range lotes {
		porEtapa[l.Etapa] = append(porEtapa[l.Etapa], l)
	}
	resp := &dto.QuadroResponse{Colunas: make([]dto.ColunaQuadro, 0, len(model.Etapas))}
	for _, e := range model.Etapas {
		col := porEtapa[e]
		ordenarLotes(col)
		resp.Colunas = append(resp.Colunas, dto.ColunaQuadro{Etapa: e.String(), Lotes: lotesToResponse(col)})
	}
	return resp, nil
}

func (r *registroLotes) ListarLinhagem(ctx context.Context, origemID uuid.UUID) (*dto.LinhagemResponse, error) {
	lotes, err := r.repo.ListByOrigem(ctx, origemID)
	if err != nil {
		return nil, err
	}
	historico, err := r.producao.ListHistoricoByOrigem(ctx, origemID)
	if err != nil {
		return nil, err
	}
	perdas, err := r.producao.ListPerdasByOrigem(ctx, origemID)
	if err != nil {
		return nil, err
	}
	if len(lotes) == 0 && len(historico) == 0 && len(perdas) == 0 {
		return nil, apperror.NaoEncontrado("linhagem")
	}

	ordenarLotes(lotes)
	resp := &dto.LinhagemResponse{LoteOrigemID: origemID.String(), Lotes: lotesToResponse(lotes)}
	for _, l := range lotes {
		resp.EmProducao += l.Quantidade
	}
	for _, h := range historico {
		resp.Finalizadas += h.Quantidade
	}
	for _, p := range perdas {
		resp.Perdidas += p.Quantidade
	}
	resp.Total = resp.EmProducao + resp.Finalizadas + resp.Perdidas
	return resp, nil
}

func ordenarLotes(lotes []model.LoteProducao) {
	sort.SliceStable(lotes, func(i, j int) bool {
		a, b := &lotes[i], &lotes[j]
		if a.Prioridade != b.Prioridade {
			return a.Prioridade > b.Prioridade
		}
		if !a.DataInicio.Equal(b.DataInicio) {
			return a.DataInicio.Before(b.DataInicio)
		}
		ea, eb := dataEntrega(a), dataEntrega(b)
		switch {
		case ea != nil && eb != nil && !ea.Equal(*eb):
			return ea.Before(*eb)
		case ea != nil && eb == nil:
			return true
		case ea == nil && eb != nil:
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func dataEntrega(l *model.LoteProducao) *time.Time {
	if l.Encomenda == nil {
		return nil
	}
	return l.Encomenda.DataEntrega
}

func (r *registroLotes) CriarTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao) error {
	if err := r.repo.CreateTx(tx, l); err != nil {
		return err
	}
	t.Registrar(model.AcaoCriar, "production_wip", l.ID, nil, snapshotLote(l))
	return nil
}

func (r *registroLotes) DividirTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao, qtd int, destino model.Etapa, em time.Time, ajuste AjusteLote) (*model.LoteProducao, *model.LoteProducao, error) {
	if qtd < 1 || qtd > l.Quantidade {
		return nil, nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"quantidade %d fora do intervalo 1..%d do lote", qtd, l.Quantidade)
	}
	entrada := model.EventoEtapa{Etapa: destino, Tipo: model.EventoEntrada, Quantidade: qtd, OcorridoEm: em}
	antes := snapshotLote(l)

	if qtd == l.Quantidade {
		campos := map[string]any{"etapa": destino}
		if ajuste.VarianteID != nil {
			campos["variante_id"] = *ajuste.VarianteID
		}
		if ajuste.MateriaisDeduzidos {
			campos["materiais_deduzidos"] = true
		}
		if ajuste.EsmalteDeduzido {
			campos["esmalte_deduzido"] = true
		}
		if err := r.repo.MoverTx(tx, l.ID, l.Etapa, l.Quantidade, campos); err != nil {
			return nil, nil, traduzir(err, "lote")
		}
		entrada.LoteID = l.ID
		if err := r.repo.CreateEventosTx(tx, []model.EventoEtapa{entrada}); err != nil {
			return nil, nil, err
		}
		l.Etapa = destino
		aplicarAjuste(l, ajuste)
		l.Historico = append(l.Historico, entrada)
		t.Registrar(model.AcaoAtualizar, "production_wip", l.ID, antes, snapshotLote(l))
		return l, nil, nil
	}

	if err := r.repo.ReduzirTx(tx, l.ID, l.Etapa, l.Quantidade, qtd); err != nil {
		return nil, nil, traduzir(err, "lote")
	}
	l.Quantidade -= qtd
	t.Registrar(model.AcaoAtualizar, "production_wip", l.ID, antes, snapshotLote(l))

	novo := &model.LoteProducao{
		ProdutoID:          l.ProdutoID,
		VarianteID:         l.VarianteID,
		EncomendaID:        l.EncomendaID,
		ItemEncomendaID:    l.ItemEncomendaID,
		Etapa:              destino,
		Quantidade:         qtd,
		MateriaisDeduzidos: l.MateriaisDeduzidos,
		EsmalteDeduzido:    l.EsmalteDeduzido,
		Observacoes:        l.Observacoes,
		DataInicio:         l.DataInicio,
		Prioridade:         l.Prioridade,
		LoteOrigemID:       l.LoteOrigemID,
		Historico:          copiarHistorico(l.Historico, entrada),
	}
	aplicarAjuste(novo, ajuste)
	if err := r.CriarTx(tx, t, novo); err != nil {
		return nil, nil, err
	}
	return novo, l, nil
}

func (r *registroLotes) ReduzirOuRemoverTx(tx *gorm.DB, t *Trilha, l *model.LoteProducao, qtd int, evento *model.EventoEtapa) (*model.LoteProducao, error) {
	if qtd < 1 || qtd > l.Quantidade {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"quantidade %d fora do intervalo 1..%d do lote", qtd, l.Quantidade)
	}
	antes := snapshotLote(l)
	if qtd == l.Quantidade {
		if err := r.repo.DeleteTx(tx, l.ID, l.Etapa, l.Quantidade); err != nil {
			return nil, traduzir(err, "lote")
		}
		t.Registrar(model.AcaoExcluir, "production_wip", l.ID, antes, nil)
		return nil, nil
	}

	if err := r.repo.ReduzirTx(tx, l.ID, l.Etapa, l.Quantidade, qtd); err != nil {
		return nil, traduzir(err, "lote")
	}
	l.Quantidade -= qtd
	if evento != nil {
		evento.LoteID = l.ID
		if err := r.repo.CreateEventosTx(tx, []model.EventoEtapa{*evento}); err != nil {
			return nil, err
		}
		l.Historico = append(l.Historico, *evento)
	}
	t.Registrar(model.AcaoAtualizar, "production_wip", l.ID, antes, snapshotLote(l))
	return l, nil
}

func aplicarAjuste(l *model.LoteProducao, a AjusteLote) {
	if a.VarianteID != nil {
		id := *a.VarianteID
		l.VarianteID = &id
	}
	if a.MateriaisDeduzidos {
		l.MateriaisDeduzidos = true
	}
	if a.EsmalteDeduzido {
		l.EsmalteDeduzido = true
	}
}

// copiarHistorico clones the events for a new record; ids and owner are
// assigned on insert.
func copiarHistorico(origem []model.EventoEtapa, extra ...model.EventoEtapa) []model.EventoEtapa {
	out := make([]model.EventoEtapa, 0, len(origem)+len(extra))
	for _, e := range append(append([]model.EventoEtapa(nil), origem...), extra...) {
		e.ID = uuid.Nil
		e.LoteID = uuid.Nil
		out = append(out, e)
	}
	return out
}

type loteSnapshot struct {
	Etapa              model.Etapa `json:"etapa"`
	Quantidade         int         `json:"quantidade"`
	VarianteID         *uuid.UUID  `json:"variante_id,omitempty"`
	MateriaisDeduzidos bool        `json:"materiais_deduzidos"`
	EsmalteDeduzido    bool        `json:"esmalte_deduzido"`
}

func snapshotLote(l *model.LoteProducao) loteSnapshot {
	return loteSnapshot{
		Etapa:              l.Etapa,
		Quantidade:         l.Quantidade,
		VarianteID:         l.VarianteID,
		MateriaisDeduzidos: l.MateriaisDeduzidos,
		EsmalteDeduzido:    l.EsmalteDeduzido,
	}
}

func idPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func loteToResponse(l *model.LoteProducao) dto.LoteResponse {
	resp := dto.LoteResponse{
		ID:                 l.ID.String(),
		ProdutoID:          l.ProdutoID.String(),
		VarianteID:         idPtrString(l.VarianteID),
		EncomendaID:        idPtrString(l.EncomendaID),
		ItemEncomendaID:    idPtrString(l.ItemEncomendaID),
		Etapa:              l.Etapa.String(),
		Quantidade:         l.Quantidade,
		MateriaisDeduzidos: l.MateriaisDeduzidos,
		EsmalteDeduzido:    l.EsmalteDeduzido,
		Observacoes:        l.Observacoes,
		DataInicio:         l.DataInicio,
		Prioridade:         l.Prioridade,
		LoteOrigemID:       l.LoteOrigemID.String(),
		Historico:          l.HistoricoMapa(),
		Eventos:            make([]dto.EventoEtapaResponse, 0, len(l.Historico)),
	}
	if l.Produto != nil {
		resp.Produto = l.Produto.Nome
	}
	for _, e := range l.Historico {
		resp.Eventos = append(resp.Eventos, dto.EventoEtapaResponse{
			Etapa:      e.Etapa.String(),
			Tipo:       e.Tipo,
			Quantidade: e.Quantidade,
			Nota:       e.Nota,
			OcorridoEm: e.OcorridoEm,
		})
	}
	return resp
}

func lotesToResponse(lotes []model.LoteProducao) []dto.LoteResponse {
	out := make([]dto.LoteResponse, 0, len(lotes))
	for i := range lotes {
		out = append(out, loteToResponse(&lotes[i]))
	}
	return out
}
