package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PerdaService records breakage. Material stock is never touched: what was
// deducted stays deducted.
type PerdaService interface {
	// RegistrarPerda reduces the batch by the lost quantity. Order-linked
	// batches get exactly one replacement batch at Fila de Espera.
	RegistrarPerda(ctx context.Context, loteID uuid.UUID, req dto.RegistrarPerdaRequest, op model.Operador) (*dto.PerdaResponse, error)
}

type perdaService struct {
	lotes     repository.LoteRepository
	producao  repository.ProducaoRepository
	registro  RegistroLotes
	auditoria Auditoria
	metrics   *metrics.ProducaoMetrics
}

func NewPerdaService(
	lotes repository.LoteRepository,
	producao repository.ProducaoRepository,
	registro RegistroLotes,
	auditoria Auditoria,
	m *metrics.ProducaoMetrics,
) PerdaService {
	if auditoria == nil {
		auditoria = NewAuditoriaLog()
	}
	return &perdaService{lotes: lotes, producao: producao, registro: registro, auditoria: auditoria, metrics: m}
}

func (s *perdaService) RegistrarPerda(ctx context.Context, loteID uuid.UUID, req dto.RegistrarPerdaRequest, op model.Operador) (resp *dto.PerdaResponse, err error) {
	defer func() {
		s.metrics.Operacao("perda", resultado(err))
		if err != nil {
			logRejeicao("perda", loteID, err)
		}
	}()

	lote, err := s.lotes.FindByID(ctx, loteID)
	if err != nil {
		return nil, traduzir(err, "lote")
	}
	etapa := lote.Etapa
	if req.Etapa != "" {
		informada := model.Etapa(req.Etapa)
		if !informada.Valida() {
			return nil, apperror.Newf(apperror.CodeTransicaoInvalida, "etapa desconhecida: %s", informada)
		}
		if informada != lote.Etapa {
			return nil, apperror.Newf(apperror.CodeTransicaoInvalida, "o lote está em %s, não em %s", lote.Etapa, informada)
		}
	}
	if req.Quantidade < 1 || req.Quantidade > lote.Quantidade {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"quantidade perdida %d fora do intervalo 1..%d do lote", req.Quantidade, lote.Quantidade)
	}

	trilha := NovaTrilha(op)
	agora := time.Now().UTC()
	var perda *model.PerdaProducao
	var restante, reposicao *model.LoteProducao

	err = runTx(ctx, s.lotes.DB(), func(tx *gorm.DB) error {
		atual, err := s.lotes.FindByIDTx(tx, loteID)
		if err != nil {
			return traduzir(err, "lote")
		}
		if atual.Etapa != lote.Etapa || atual.Quantidade != lote.Quantidade {
			return errConflitoLote()
		}

		perda = &model.PerdaProducao{
			ProdutoID:       atual.ProdutoID,
			VarianteID:      atual.VarianteID,
			LoteID:          atual.ID,
			LoteOrigemID:    atual.LoteOrigemID,
			Etapa:           etapa,
			Quantidade:      req.Quantidade,
			Motivo:          req.Motivo,
			EncomendaID:     atual.EncomendaID,
			ItemEncomendaID: atual.ItemEncomendaID,
			UsuarioID:       op.ID,
			UsuarioNome:     op.Nome,
		}
		if err := s.producao.CreatePerdaTx(tx, perda); err != nil {
			return err
		}
		trilha.Registrar(model.AcaoCriar, "production_losses", perda.ID, nil, perda)

		evento := &model.EventoEtapa{
			Etapa:      etapa,
			Tipo:       model.EventoPerda,
			Quantidade: req.Quantidade,
			Nota:       req.Motivo,
			OcorridoEm: agora,
		}
		if restante, err = s.registro.ReduzirOuRemoverTx(tx, trilha, atual, req.Quantidade, evento); err != nil {
			return err
		}

		if !atual.VinculadoAEncomenda() {
			return nil
		}
		reposicao = &model.LoteProducao{
			ProdutoID:       atual.ProdutoID,
			VarianteID:      atual.VarianteID,
			EncomendaID:     atual.EncomendaID,
			ItemEncomendaID: atual.ItemEncomendaID,
			Etapa:           model.EtapaFilaDeEspera,
			Quantidade:      req.Quantidade,
			Observacoes: fmt.Sprintf("Reposição de quebra: %d un. perdidas em %s (lote %s)",
				req.Quantidade, etapa, atual.ID),
			DataInicio: agora,
			Prioridade: atual.Prioridade,
			Historico: []model.EventoEtapa{{
				Etapa:      model.EtapaFilaDeEspera,
				Tipo:       model.EventoCriacao,
				Quantidade: req.Quantidade,
				Nota:       "reposição de quebra",
				OcorridoEm: agora,
			}},
		}
		return s.registro.CriarTx(tx, trilha, reposicao)
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)
	s.metrics.Unidades("perdidas", etapa.String(), req.Quantidade)

	log.Info().
		Str("lote_id", loteID.String()).
		Str("etapa", etapa.String()).
		Int("quantidade", req.Quantidade).
		Bool("reposto", reposicao != nil).
		Msg("perda registrada")

	resp = &dto.PerdaResponse{PerdaID: perda.ID.String(), Reposto: reposicao != nil}
	if restante != nil {
		r := loteToResponse(restante)
		resp.Lote = &r
	}
	if reposicao != nil {
		r := loteToResponse(reposicao)
		resp.LoteReposicao = &r
	}
	return resp, nil
}
