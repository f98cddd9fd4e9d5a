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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProducaoService is the workflow engine: it starts batches, moves them one
// stage at a time and finalizes them into finished goods.
type ProducaoService interface {
	Iniciar(ctx context.Context, req dto.IniciarProducaoRequest, op model.Operador) (*dto.IniciarProducaoResponse, error)
	Avancar(ctx context.Context, loteID uuid.UUID, req dto.AvancarLoteRequest, op model.Operador) (*dto.AvancoResponse, error)
	Finalizar(ctx context.Context, loteID uuid.UUID, req dto.FinalizarLoteRequest, op model.Operador) (*dto.FinalizacaoResponse, error)
}

type producaoService struct {
	lotes      repository.LoteRepository
	produtos   repository.ProdutoRepository
	encomendas repository.EncomendaRepository
	producao   repository.ProducaoRepository
	receitas   ReceitaService
	estoque    EstoqueService
	registro   RegistroLotes
	auditoria  Auditoria
	metrics    *metrics.ProducaoMetrics
}

func NewProducaoService(
	lotes repository.LoteRepository,
	produtos repository.ProdutoRepository,
	encomendas repository.EncomendaRepository,
	producao repository.ProducaoRepository,
	receitas ReceitaService,
	estoque EstoqueService,
	registro RegistroLotes,
	auditoria Auditoria,
	m *metrics.ProducaoMetrics,
) ProducaoService {
	if auditoria == nil {
		auditoria = NewAuditoriaLog()
	}
	return &producaoService{
		lotes:      lotes,
		produtos:   produtos,
		encomendas: encomendas,
		producao:   producao,
		receitas:   receitas,
		estoque:    estoque,
		registro:   registro,
		auditoria:  auditoria,
		metrics:    m,
	}
}

// resultado feeds the operation counter: typed errors are rejections,
// anything else is a failure.
func resultado(err error) string {
	switch {
	case err == nil:
		return metrics.ResultadoOK
	case apperror.As(err) != nil && apperror.As(err).Code() != apperror.CodeInterno:
		return metrics.ResultadoRejeitado
	default:
		return metrics.ResultadoErro
	}
}

func logRejeicao(operacao string, loteID uuid.UUID, err error) {
	log.Warn().Err(err).Str("operacao", operacao).Str("lote_id", loteID.String()).Msg("operação de produção rejeitada")
}

// mesmoEstado reports whether the batch re-read inside the transaction is
// still the one validated outside it.
func mesmoEstado(a, b *model.LoteProducao) bool {
	return a.Etapa == b.Etapa &&
		a.Quantidade == b.Quantidade &&
		a.MateriaisDeduzidos == b.MateriaisDeduzidos &&
		a.EsmalteDeduzido == b.EsmalteDeduzido
}

func errConflitoLote() error {
	return apperror.New(apperror.CodeConflito, "o lote foi alterado por outra operação; recarregue e tente novamente")
}

// ── Iniciar ──────────────────────────────────────────────────────────────────

func (s *producaoService) Iniciar(ctx context.Context, req dto.IniciarProducaoRequest, op model.Operador) (resp *dto.IniciarProducaoResponse, err error) {
	defer func() { s.metrics.Operacao("iniciar", resultado(err)) }()

	produtoID, err := parseID(req.ProdutoID, "produto_id")
	if err != nil {
		return nil, err
	}
	if req.Quantidade < 1 {
		return nil, apperror.New(apperror.CodeValidacao, "a quantidade deve ser maior que zero")
	}
	varianteID, err := parseIDOpcional(req.VarianteID, "variante_id")
	if err != nil {
		return nil, err
	}
	encomendaID, err := parseIDOpcional(req.EncomendaID, "encomenda_id")
	if err != nil {
		return nil, err
	}
	itemID, err := parseIDOpcional(req.ItemEncomendaID, "item_encomenda_id")
	if err != nil {
		return nil, err
	}
	if (encomendaID == nil) != (itemID == nil) {
		return nil, apperror.New(apperror.CodeValidacao, "encomenda_id e item_encomenda_id devem ser informados juntos")
	}

	p, err := s.produtos.FindByID(ctx, produtoID)
	if err != nil {
		return nil, traduzir(err, "produto")
	}
	if varianteID != nil {
		v, err := s.produtos.FindVariante(ctx, *varianteID)
		if err != nil {
			return nil, traduzir(err, "variante")
		}
		if v.ProdutoID != p.ID {
			return nil, apperror.New(apperror.CodeValidacao, "a variante não pertence ao produto")
		}
	}

	var enc *model.Encomenda
	if encomendaID != nil {
		enc, err = s.encomendas.FindByID(ctx, *encomendaID)
		if err != nil {
			return nil, traduzir(err, "encomenda")
		}
		if enc.Status == model.EncomendaCancelada || enc.Status == model.EncomendaEntregue {
			return nil, apperror.Newf(apperror.CodeValidacao, "encomenda com status %s não aceita produção", enc.Status)
		}
		item := itemDaEncomenda(enc, *itemID)
		if item == nil {
			return nil, apperror.NaoEncontrado("item da encomenda")
		}
		if item.ProdutoID != p.ID {
			return nil, apperror.New(apperror.CodeValidacao, "o item da encomenda é de outro produto")
		}
	}

	agora := time.Now().UTC()
	dataInicio := agora
	if req.DataInicio != nil {
		dataInicio = req.DataInicio.UTC()
	}
	lote := &model.LoteProducao{
		ProdutoID:       p.ID,
		VarianteID:      varianteID,
		EncomendaID:     encomendaID,
		ItemEncomendaID: itemID,
		Etapa:           model.EtapaFilaDeEspera,
		Quantidade:      req.Quantidade,
		Observacoes:     req.Observacoes,
		DataInicio:      dataInicio,
		Prioridade:      req.Prioridade,
		Historico: []model.EventoEtapa{{
			Etapa:      model.EtapaFilaDeEspera,
			Tipo:       model.EventoCriacao,
			Quantidade: req.Quantidade,
			OcorridoEm: agora,
		}},
	}

	trilha := NovaTrilha(op)
	err = runTx(ctx, s.lotes.DB(), func(tx *gorm.DB) error {
		if err := s.registro.CriarTx(tx, trilha, lote); err != nil {
			return err
		}
		if enc != nil && enc.Status == model.EncomendaPendente {
			if err := s.encomendas.AtualizarStatusTx(tx, enc.ID, model.EncomendaProducao); err != nil {
				return err
			}
			trilha.Registrar(model.AcaoAtualizar, "commission_orders", enc.ID,
				map[string]string{"status": enc.Status}, map[string]string{"status": model.EncomendaProducao})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)
	s.metrics.Unidades("iniciadas", model.EtapaFilaDeEspera.String(), lote.Quantidade)

	lote.Produto = p
	log.Info().
		Str("lote_id", lote.ID.String()).
		Str("produto", p.Nome).
		Int("quantidade", lote.Quantidade).
		Msg("produção iniciada")

	return &dto.IniciarProducaoResponse{Lote: loteToResponse(lote), Avisos: avisosProduto(p)}, nil
}

func itemDaEncomenda(enc *model.Encomenda, itemID uuid.UUID) *model.ItemEncomenda {
	for i := range enc.Itens {
		if enc.Itens[i].ID == itemID {
			return &enc.Itens[i]
		}
	}
	return nil
}

// ── Avancar ──────────────────────────────────────────────────────────────────
// 1. Validate the transition (successor stage, origin, quantity, total)
// 2. Collect deductions: clay entering Modelagem, glaze entering Esmaltação
// 3. Pre-flight availability outside the TX
// 4. BEGIN TX: re-read batch, re-check stock, deduct, split, set variant
// 5. COMMIT, then publish audit events

func (s *producaoService) Avancar(ctx context.Context, loteID uuid.UUID, req dto.AvancarLoteRequest, op model.Operador) (resp *dto.AvancoResponse, err error) {
	defer func() {
		s.metrics.Operacao("avancar", resultado(err))
		if err != nil {
			logRejeicao("avancar", loteID, err)
		}
	}()

	origem, destino := model.Etapa(req.EtapaOrigem), model.Etapa(req.EtapaDestino)
	if !origem.Valida() || !destino.Valida() {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida, "etapa desconhecida: %s → %s", origem, destino)
	}
	if prox, ok := origem.Proxima(); !ok || prox != destino {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"%s não é a etapa seguinte a %s", destino, origem)
	}
	varianteID, err := parseIDOpcional(req.VarianteID, "variante_id")
	if err != nil {
		return nil, err
	}

	lote, err := s.lotes.FindByID(ctx, loteID)
	if err != nil {
		return nil, traduzir(err, "lote")
	}
	if lote.Etapa != origem {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida, "o lote está em %s, não em %s", lote.Etapa, origem)
	}
	if req.Quantidade < 1 || req.Quantidade > lote.Quantidade {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"quantidade %d fora do intervalo 1..%d do lote", req.Quantidade, lote.Quantidade)
	}
	if req.QuantidadeTotal != lote.Quantidade {
		return nil, apperror.Newf(apperror.CodeConflito,
			"o lote tem %d unidades, não %d; recarregue e tente novamente", lote.Quantidade, req.QuantidadeTotal)
	}

	p, err := s.produtos.FindByID(ctx, lote.ProdutoID)
	if err != nil {
		return nil, traduzir(err, "produto")
	}
	variante, err := s.varianteEfetiva(ctx, p, lote.VarianteID, varianteID)
	if err != nil {
		return nil, err
	}

	qtd := decimal.NewFromInt(int64(req.Quantidade))
	ajuste := AjusteLote{VarianteID: varianteID}
	var deducoes []Necessidade
	var avisos []dto.Aviso

	if destino == model.EtapaModelagem && !lote.MateriaisDeduzidos {
		ns, err := s.receitas.Resolver(ctx, p.ID, qtd)
		if err != nil {
			return nil, err
		}
		deducoes = append(deducoes, filtrar(ns, (*model.Material).EhArgila)...)
		ajuste.MateriaisDeduzidos = true
		avisos = avisosProduto(p)
	}
	if origem == model.EtapaBiscoito && destino == model.EtapaEsmaltacao && req.DeduzirEsmalte && !lote.EsmalteDeduzido {
		ns, err := s.receitas.Resolver(ctx, p.ID, qtd)
		if err != nil {
			return nil, err
		}
		deducoes = append(deducoes, filtrar(ns, ehEsmalte)...)
		n, ok, err := materialDaVariante(variante, qtd)
		if err != nil {
			return nil, err
		}
		if ok {
			deducoes = append(deducoes, n)
		}
		ajuste.EsmalteDeduzido = true
	}
	deducoes = somarNecessidades(deducoes)

	if err := s.estoque.VerificarDisponibilidade(ctx, deducoes); err != nil {
		return nil, err
	}

	trilha := NovaTrilha(op)
	agora := time.Now().UTC()
	nota := fmt.Sprintf("Produção %s: %s → %s (%d un.)", p.Nome, origem, destino, req.Quantidade)
	var movs []model.MovimentacaoEstoque
	var movido, restante *model.LoteProducao

	err = runTx(ctx, s.lotes.DB(), func(tx *gorm.DB) error {
		atual, err := s.lotes.FindByIDTx(tx, loteID)
		if err != nil {
			return traduzir(err, "lote")
		}
		if !mesmoEstado(atual, lote) {
			return errConflitoLote()
		}
		if err := s.estoque.VerificarDisponibilidadeTx(tx, deducoes); err != nil {
			return err
		}
		if movs, err = s.estoque.DeduzirTx(tx, trilha, deducoes, nota, &atual.LoteOrigemID); err != nil {
			return err
		}
		movido, restante, err = s.registro.DividirTx(tx, trilha, atual, req.Quantidade, destino, agora, ajuste)
		return err
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)
	s.metrics.Unidades("movidas", destino.String(), req.Quantidade)

	log.Info().
		Str("lote_id", movido.ID.String()).
		Str("origem", origem.String()).
		Str("destino", destino.String()).
		Int("quantidade", req.Quantidade).
		Int("deducoes", len(movs)).
		Msg("lote avançado")

	movido.Produto = p
	resp = &dto.AvancoResponse{
		Lote:     loteToResponse(movido),
		Deducoes: movimentacoesToResponse(movs),
		Avisos:   avisos,
	}
	if restante != nil {
		restante.Produto = p
		r := loteToResponse(restante)
		resp.Restante = &r
	}
	return resp, nil
}

// varianteEfetiva returns the variant the moved units carry: the one
// selected on this call, else the batch's current one.
func (s *producaoService) varianteEfetiva(ctx context.Context, p *model.Produto, atual, selecionada *uuid.UUID) (*model.Variante, error) {
	id := atual
	if selecionada != nil {
		id = selecionada
	}
	if id == nil {
		return nil, nil
	}
	v, err := s.produtos.FindVariante(ctx, *id)
	if err != nil {
		return nil, traduzir(err, "variante")
	}
	if v.ProdutoID != p.ID {
		return nil, apperror.New(apperror.CodeValidacao, "a variante não pertence ao produto")
	}
	return v, nil
}

// ehEsmalte is the glaze subset; a material that also reads as clay
// belongs to the clay gate.
func ehEsmalte(m *model.Material) bool { return m.EhEsmalte() && !m.EhArgila() }

// materialDaVariante returns the variant's material charge for qtd units.
// A variant pointing at a missing material is NAO_ENCONTRADO.
func materialDaVariante(v *model.Variante, qtd decimal.Decimal) (Necessidade, bool, error) {
	if v == nil || v.MaterialID == nil {
		return Necessidade{}, false, nil
	}
	if v.Material == nil {
		return Necessidade{}, false, apperror.NaoEncontrado("material da variante")
	}
	if !v.QuantidadeMaterial.IsPositive() {
		return Necessidade{}, false, nil
	}
	return Necessidade{Material: v.Material, Quantidade: v.QuantidadeMaterial.Mul(qtd)}, true, nil
}

// ── Finalizar ────────────────────────────────────────────────────────────────
// Deducts whatever the stage gates left (clay if never pulled, glaze and
// variant material if not pulled at Esmaltação, every other material),
// credits the order line, optionally finished stock, writes the history
// record and closes the order when every line is met.

func (s *producaoService) Finalizar(ctx context.Context, loteID uuid.UUID, req dto.FinalizarLoteRequest, op model.Operador) (resp *dto.FinalizacaoResponse, err error) {
	defer func() {
		s.metrics.Operacao("finalizar", resultado(err))
		if err != nil {
			logRejeicao("finalizar", loteID, err)
		}
	}()

	lote, err := s.lotes.FindByID(ctx, loteID)
	if err != nil {
		return nil, traduzir(err, "lote")
	}
	if !lote.Etapa.EhFinal() {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"só é possível finalizar lotes em %s; o lote está em %s", model.EtapaQueimaDeAlta, lote.Etapa)
	}
	if req.Quantidade < 1 || req.Quantidade > lote.Quantidade {
		return nil, apperror.Newf(apperror.CodeTransicaoInvalida,
			"quantidade %d fora do intervalo 1..%d do lote", req.Quantidade, lote.Quantidade)
	}

	p, err := s.produtos.FindByID(ctx, lote.ProdutoID)
	if err != nil {
		return nil, traduzir(err, "produto")
	}
	variante, err := s.varianteEfetiva(ctx, p, lote.VarianteID, nil)
	if err != nil {
		return nil, err
	}

	qtd := decimal.NewFromInt(int64(req.Quantidade))
	ns, err := s.receitas.Resolver(ctx, p.ID, qtd)
	if err != nil {
		return nil, err
	}
	deducoes := filtrar(ns, func(m *model.Material) bool {
		switch {
		case m.EhArgila():
			return !lote.MateriaisDeduzidos
		case m.EhEsmalte():
			return !lote.EsmalteDeduzido
		default:
			return true
		}
	})
	if !lote.EsmalteDeduzido {
		n, ok, err := materialDaVariante(variante, qtd)
		if err != nil {
			return nil, err
		}
		if ok {
			deducoes = append(deducoes, n)
		}
	}
	deducoes = somarNecessidades(deducoes)

	if err := s.estoque.VerificarDisponibilidade(ctx, deducoes); err != nil {
		return nil, err
	}

	trilha := NovaTrilha(op)
	nota := fmt.Sprintf("Finalização %s: %d un.", p.Nome, req.Quantidade)
	var movs []model.MovimentacaoEstoque
	var restante *model.LoteProducao
	var historico *model.HistoricoProducao
	concluida := false

	err = runTx(ctx, s.lotes.DB(), func(tx *gorm.DB) error {
		atual, err := s.lotes.FindByIDTx(tx, loteID)
		if err != nil {
			return traduzir(err, "lote")
		}
		if !mesmoEstado(atual, lote) {
			return errConflitoLote()
		}
		if err := s.estoque.VerificarDisponibilidadeTx(tx, deducoes); err != nil {
			return err
		}
		if movs, err = s.estoque.DeduzirTx(tx, trilha, deducoes, nota, &atual.LoteOrigemID); err != nil {
			return err
		}

		if atual.ItemEncomendaID != nil {
			if err := s.encomendas.IncrementarProduzidaTx(tx, *atual.ItemEncomendaID, req.Quantidade); err != nil {
				return traduzir(err, "item da encomenda")
			}
			trilha.Registrar(model.AcaoAtualizar, "commission_items", *atual.ItemEncomendaID,
				nil, map[string]int{"quantidade_produzida_incremento": req.Quantidade})
		}

		if req.IncrementarEstoque {
			if err := s.estoque.AjustarAcabadoTx(tx, trilha, atual.ProdutoID, atual.VarianteID, req.Quantidade); err != nil {
				return err
			}
		}

		historico = &model.HistoricoProducao{
			ProdutoID:    atual.ProdutoID,
			VarianteID:   atual.VarianteID,
			Quantidade:   req.Quantidade,
			EncomendaID:  atual.EncomendaID,
			LoteOrigemID: atual.LoteOrigemID,
			UsuarioID:    op.ID,
			UsuarioNome:  op.Nome,
			Nota:         req.Observacoes,
		}
		if err := s.producao.CreateHistoricoTx(tx, historico); err != nil {
			return err
		}
		trilha.Registrar(model.AcaoCriar, "production_history", historico.ID, nil, historico)

		if atual.EncomendaID != nil {
			if concluida, err = s.concluirEncomendaTx(tx, trilha, *atual.EncomendaID); err != nil {
				return err
			}
		}

		restante, err = s.registro.ReduzirOuRemoverTx(tx, trilha, atual, req.Quantidade, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)
	s.metrics.Unidades("finalizadas", lote.Etapa.String(), req.Quantidade)

	log.Info().
		Str("lote_id", loteID.String()).
		Str("produto", p.Nome).
		Int("quantidade", req.Quantidade).
		Bool("encomenda_concluida", concluida).
		Msg("lote finalizado")

	resp = &dto.FinalizacaoResponse{
		HistoricoID:         historico.ID.String(),
		Quantidade:          req.Quantidade,
		Deducoes:            movimentacoesToResponse(movs),
		EncomendaConcluida:  concluida,
		EstoqueIncrementado: req.IncrementarEstoque,
		Avisos:              avisosProduto(p),
	}
	if restante != nil {
		restante.Produto = p
		r := loteToResponse(restante)
		resp.Restante = &r
	}
	return resp, nil
}

// concluirEncomendaTx marks the order Concluída once every line has
// produced ≥ ordered − reserved from stock. Delivered or cancelled orders
// are left alone.
func (s *producaoService) concluirEncomendaTx(tx *gorm.DB, t *Trilha, encomendaID uuid.UUID) (bool, error) {
	enc, err := s.encomendas.FindByIDTx(tx, encomendaID)
	if err != nil {
		return false, traduzir(err, "encomenda")
	}
	if enc.Status != model.EncomendaPendente && enc.Status != model.EncomendaProducao {
		return false, nil
	}
	for i := range enc.Itens {
		if !enc.Itens[i].Atendido() {
			return false, nil
		}
	}
	if err := s.encomendas.AtualizarStatusTx(tx, enc.ID, model.EncomendaConcluida); err != nil {
		return false, err
	}
	t.Registrar(model.AcaoAtualizar, "commission_orders", enc.ID,
		map[string]string{"status": enc.Status}, map[string]string{"status": model.EncomendaConcluida})
	return true, nil
}
