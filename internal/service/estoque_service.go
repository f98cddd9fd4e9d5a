package service

import (
	"context"
	"fmt"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lancamento is one signed change to a material's stock.
type Lancamento struct {
	MaterialID uuid.UUID
	Delta      decimal.Decimal
	Tipo       string
	Nota       string
	Custo      *decimal.Decimal
	LoteID     *uuid.UUID
}

// EstoqueService is the stock ledger. Material balances only change through
// AplicarTx, which writes the balance and its movement in the same tx.
type EstoqueService interface {
	AplicarTx(tx *gorm.DB, t *Trilha, l Lancamento) (*model.MovimentacaoEstoque, error)
	RegistrarEntrada(ctx context.Context, materialID uuid.UUID, req dto.EntradaMaterialRequest, op model.Operador) (*dto.MovimentacaoResponse, error)
	Ajustar(ctx context.Context, materialID uuid.UUID, req dto.AjusteMaterialRequest, op model.Operador) (*dto.MovimentacaoResponse, error)

	// VerificarDisponibilidade fails on the first short physical material,
	// in the order given. Labor and firing are skipped.
	VerificarDisponibilidade(ctx context.Context, ns []Necessidade) error
	VerificarDisponibilidadeTx(tx *gorm.DB, ns []Necessidade) error
	// DeduzirTx writes one SAIDA per physical material. It does not check
	// availability; callers verify first.
	DeduzirTx(tx *gorm.DB, t *Trilha, ns []Necessidade, nota string, loteID *uuid.UUID) ([]model.MovimentacaoEstoque, error)

	// AjustarAcabadoTx changes finished-goods stock. A variant adjusts the
	// variant's counter; a kit distributes delta × quantity to its components.
	AjustarAcabadoTx(tx *gorm.DB, t *Trilha, produtoID uuid.UUID, varianteID *uuid.UUID, delta int) error
	EstoqueEfetivo(ctx context.Context, produtoID uuid.UUID) (*dto.EstoqueProdutoResponse, error)
	BaixarAcabado(ctx context.Context, req dto.BaixaAcabadoRequest, op model.Operador) (*dto.BaixaAcabadoResponse, error)

	Conferir(ctx context.Context, materialID uuid.UUID) (*dto.ConferenciaResponse, error)
	Alertas(ctx context.Context) ([]dto.AlertaEstoqueResponse, error)
	Movimentacoes(ctx context.Context, materialID uuid.UUID, filter dto.MovimentacaoFilter) (*dto.MovimentacaoListResponse, error)
}

type estoqueService struct {
	materiais     repository.MaterialRepository
	movimentacoes repository.MovimentacaoRepository
	produtos      repository.ProdutoRepository
	auditoria     Auditoria
}

func NewEstoqueService(
	materiais repository.MaterialRepository,
	movimentacoes repository.MovimentacaoRepository,
	produtos repository.ProdutoRepository,
	auditoria Auditoria,
) EstoqueService {
	if auditoria == nil {
		auditoria = NewAuditoriaLog()
	}
	return &estoqueService{
		materiais:     materiais,
		movimentacoes: movimentacoes,
		produtos:      produtos,
		auditoria:     auditoria,
	}
}

type snapshotEstoque struct {
	EstoqueAtual any `json:"estoque_atual"`
}

type snapshotPreco struct {
	PrecoUnitario decimal.Decimal `json:"preco_unitario"`
}

// ── Ledger ───────────────────────────────────────────────────────────────────

func (s *estoqueService) AplicarTx(tx *gorm.DB, t *Trilha, l Lancamento) (*model.MovimentacaoEstoque, error) {
	m, err := s.materiais.FindByIDTx(tx, l.MaterialID)
	if err != nil {
		return nil, traduzir(err, "material")
	}
	anterior := m.EstoqueAtual
	novo := anterior.Add(l.Delta)
	if err := s.materiais.AtualizarEstoqueTx(tx, m.ID, anterior, novo); err != nil {
		return nil, traduzir(err, "material")
	}

	op := t.Operador()
	mov := &model.MovimentacaoEstoque{
		MaterialID:      m.ID,
		Tipo:            l.Tipo,
		Quantidade:      l.Delta,
		EstoqueAnterior: anterior,
		EstoqueNovo:     novo,
		Custo:           l.Custo,
		Nota:            l.Nota,
		LoteID:          l.LoteID,
		UsuarioID:       op.ID,
		UsuarioNome:     op.Nome,
	}
	if err := s.movimentacoes.CreateTx(tx, mov); err != nil {
		return nil, fmt.Errorf("registrando movimentação de %s: %w", m.Nome, err)
	}
	m.EstoqueAtual = novo
	mov.Material = m

	t.Registrar(model.AcaoAtualizar, "materials", m.ID, snapshotEstoque{anterior}, snapshotEstoque{novo})
	t.Registrar(model.AcaoCriar, "inventory_transactions", mov.ID, nil, mov)
	return mov, nil
}

func (s *estoqueService) RegistrarEntrada(ctx context.Context, materialID uuid.UUID, req dto.EntradaMaterialRequest, op model.Operador) (*dto.MovimentacaoResponse, error) {
	if !req.Quantidade.IsPositive() {
		return nil, apperror.New(apperror.CodeValidacao, "a quantidade da entrada deve ser maior que zero")
	}
	if req.Custo.IsNegative() {
		return nil, apperror.New(apperror.CodeValidacao, "o custo não pode ser negativo")
	}

	trilha := NovaTrilha(op)
	var mov *model.MovimentacaoEstoque
	err := runTx(ctx, s.materiais.DB(), func(tx *gorm.DB) error {
		m, err := s.materiais.FindByIDTx(tx, materialID)
		if err != nil {
			return traduzir(err, "material")
		}

		var custo *decimal.Decimal
		if req.Custo.IsPositive() {
			c := req.Custo
			custo = &c
			preco := NovoCustoMedio(m.EstoqueAtual, m.PrecoUnitario, req.Quantidade, req.Custo)
			if err := s.materiais.AtualizarPrecoTx(tx, m.ID, preco); err != nil {
				return err
			}
			trilha.Registrar(model.AcaoAtualizar, "materials", m.ID, snapshotPreco{m.PrecoUnitario}, snapshotPreco{preco})
		}

		mov, err = s.AplicarTx(tx, trilha, Lancamento{
			MaterialID: m.ID,
			Delta:      req.Quantidade,
			Tipo:       model.MovEntrada,
			Nota:       req.Nota,
			Custo:      custo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)

	log.Info().Str("material", mov.Material.Nome).Str("quantidade", req.Quantidade.String()).Msg("entrada de material registrada")
	resp := movimentacaoToResponse(mov)
	return &resp, nil
}

func (s *estoqueService) Ajustar(ctx context.Context, materialID uuid.UUID, req dto.AjusteMaterialRequest, op model.Operador) (*dto.MovimentacaoResponse, error) {
	if req.Delta.IsZero() {
		return nil, apperror.New(apperror.CodeValidacao, "o ajuste não pode ser zero")
	}
	nota := req.Nota
	if nota == "" {
		nota = "Ajuste manual"
	}

	trilha := NovaTrilha(op)
	var mov *model.MovimentacaoEstoque
	err := runTx(ctx, s.materiais.DB(), func(tx *gorm.DB) error {
		var err error
		mov, err = s.AplicarTx(tx, trilha, Lancamento{
			MaterialID: materialID,
			Delta:      req.Delta,
			Tipo:       model.MovAjuste,
			Nota:       nota,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)

	log.Info().Str("material", mov.Material.Nome).Str("delta", req.Delta.String()).Msg("ajuste de estoque registrado")
	resp := movimentacaoToResponse(mov)
	return &resp, nil
}

func (s *estoqueService) VerificarDisponibilidade(ctx context.Context, ns []Necessidade) error {
	return s.VerificarDisponibilidadeTx(s.materiais.DB().WithContext(ctx), ns)
}

func (s *estoqueService) VerificarDisponibilidadeTx(tx *gorm.DB, ns []Necessidade) error {
	for _, n := range ns {
		if n.SemControle() || !n.Quantidade.IsPositive() {
			continue
		}
		m, err := s.materiais.FindByIDTx(tx, n.Material.ID)
		if err != nil {
			return traduzir(err, "material")
		}
		if m.EstoqueAtual.LessThan(n.Quantidade) {
			return apperror.EstoqueInsuficiente(m.Nome, m.Unidade, n.Quantidade, m.EstoqueAtual)
		}
	}
	return nil
}

func (s *estoqueService) DeduzirTx(tx *gorm.DB, t *Trilha, ns []Necessidade, nota string, loteID *uuid.UUID) ([]model.MovimentacaoEstoque, error) {
	var movs []model.MovimentacaoEstoque
	for _, n := range ns {
		if n.SemControle() || !n.Quantidade.IsPositive() {
			continue
		}
		mov, err := s.AplicarTx(tx, t, Lancamento{
			MaterialID: n.Material.ID,
			Delta:      n.Quantidade.Neg(),
			Tipo:       model.MovSaida,
			Nota:       nota,
			LoteID:     loteID,
		})
		if err != nil {
			return nil, err
		}
		movs = append(movs, *mov)
	}
	return movs, nil
}

// ── Finished goods ───────────────────────────────────────────────────────────

// parcela is a simple product and how many of its units a kit operation touches.
type parcela struct {
	produto    *model.Produto
	quantidade int
}

// expandirKit flattens produtoID × qtd into simple products. A simple
// product yields itself.
func (s *estoqueService) expandirKit(tx *gorm.DB, produtoID uuid.UUID, qtd int) ([]parcela, error) {
	var out []parcela
	indice := make(map[uuid.UUID]int)
	var walk func(id uuid.UUID, qtd int, caminho map[uuid.UUID]bool) error
	walk = func(id uuid.UUID, qtd int, caminho map[uuid.UUID]bool) error {
		if caminho[id] {
			return apperror.Newf(apperror.CodeConfiguracaoInvalida,
				"composição de kit cíclica: o produto %s contém a si mesmo", id)
		}
		p, err := s.produtos.FindByIDTx(tx, id)
		if err != nil {
			return traduzir(err, "produto")
		}
		if !p.EhKit() {
			if i, ok := indice[p.ID]; ok {
				out[i].quantidade += qtd
				return nil
			}
			indice[p.ID] = len(out)
			out = append(out, parcela{produto: p, quantidade: qtd})
			return nil
		}
		caminho[id] = true
		defer delete(caminho, id)
		for _, c := range p.Componentes {
			if err := walk(c.ProdutoID, qtd*c.Quantidade, caminho); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(produtoID, qtd, make(map[uuid.UUID]bool)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *estoqueService) AjustarAcabadoTx(tx *gorm.DB, t *Trilha, produtoID uuid.UUID, varianteID *uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	if varianteID != nil {
		v, err := s.produtos.FindVarianteTx(tx, *varianteID)
		if err != nil {
			return traduzir(err, "variante")
		}
		if err := s.produtos.AjustarEstoqueVarianteTx(tx, v.ID, delta); err != nil {
			return err
		}
		t.Registrar(model.AcaoAtualizar, "variants", v.ID, snapshotEstoque{v.EstoqueAtual}, snapshotEstoque{v.EstoqueAtual + delta})
		return nil
	}

	parcelas, err := s.expandirKit(tx, produtoID, delta)
	if err != nil {
		return err
	}
	for _, p := range parcelas {
		if err := s.produtos.AjustarEstoqueTx(tx, p.produto.ID, p.quantidade); err != nil {
			return err
		}
		t.Registrar(model.AcaoAtualizar, "products", p.produto.ID,
			snapshotEstoque{p.produto.EstoqueAtual}, snapshotEstoque{p.produto.EstoqueAtual + p.quantidade})
	}
	return nil
}

func (s *estoqueService) EstoqueEfetivo(ctx context.Context, produtoID uuid.UUID) (*dto.EstoqueProdutoResponse, error) {
	p, err := s.produtos.FindByID(ctx, produtoID)
	if err != nil {
		return nil, traduzir(err, "produto")
	}
	resp := &dto.EstoqueProdutoResponse{
		ProdutoID: p.ID.String(),
		Nome:      p.Nome,
		Kit:       p.EhKit(),
	}
	if !p.EhKit() {
		resp.EstoqueEfetivo = p.EstoqueAtual
		for _, v := range p.Variantes {
			resp.Variantes = append(resp.Variantes, dto.EstoqueVariante{
				VarianteID:   v.ID.String(),
				Nome:         v.Nome,
				EstoqueAtual: v.EstoqueAtual,
			})
		}
		return resp, nil
	}

	efetivo, comps, err := s.estoqueKit(ctx, p, make(map[uuid.UUID]bool))
	if err != nil {
		return nil, err
	}
	resp.EstoqueEfetivo = efetivo
	resp.Componentes = comps
	return resp, nil
}

// estoqueKit derives a kit's stock as min over components of
// floor(component stock / quantity per kit), recursing into nested kits.
func (s *estoqueService) estoqueKit(ctx context.Context, kit *model.Produto, caminho map[uuid.UUID]bool) (int, []dto.ComponenteEstoque, error) {
	caminho[kit.ID] = true
	defer delete(caminho, kit.ID)

	minimo := -1
	comps := make([]dto.ComponenteEstoque, 0, len(kit.Componentes))
	for _, c := range kit.Componentes {
		if c.Quantidade <= 0 {
			continue
		}
		if caminho[c.ProdutoID] {
			return 0, nil, apperror.Newf(apperror.CodeConfiguracaoInvalida,
				"composição de kit cíclica: o produto %s contém a si mesmo", c.ProdutoID)
		}
		filho, err := s.produtos.FindByID(ctx, c.ProdutoID)
		if err != nil {
			return 0, nil, traduzir(err, "produto")
		}
		estoqueFilho := filho.EstoqueAtual
		if filho.EhKit() {
			if estoqueFilho, _, err = s.estoqueKit(ctx, filho, caminho); err != nil {
				return 0, nil, err
			}
		}
		possiveis := 0
		if estoqueFilho > 0 {
			possiveis = estoqueFilho / c.Quantidade
		}
		comps = append(comps, dto.ComponenteEstoque{
			ProdutoID:         filho.ID.String(),
			Nome:              filho.Nome,
			QuantidadePorKit:  c.Quantidade,
			EstoqueComponente: estoqueFilho,
			KitsPossiveis:     possiveis,
		})
		if minimo < 0 || possiveis < minimo {
			minimo = possiveis
		}
	}
	if minimo < 0 {
		minimo = 0
	}
	return minimo, comps, nil
}

func (s *estoqueService) BaixarAcabado(ctx context.Context, req dto.BaixaAcabadoRequest, op model.Operador) (*dto.BaixaAcabadoResponse, error) {
	produtoID, err := parseID(req.ProdutoID, "produto_id")
	if err != nil {
		return nil, err
	}
	varianteID, err := parseIDOpcional(req.VarianteID, "variante_id")
	if err != nil {
		return nil, err
	}
	if req.Quantidade <= 0 {
		return nil, apperror.New(apperror.CodeValidacao, "a quantidade deve ser maior que zero")
	}
	qtd := decimal.NewFromInt(int64(req.Quantidade))

	p, err := s.produtos.FindByID(ctx, produtoID)
	if err != nil {
		return nil, traduzir(err, "produto")
	}

	trilha := NovaTrilha(op)
	resp := &dto.BaixaAcabadoResponse{ProdutoID: p.ID.String(), VarianteID: req.VarianteID, Quantidade: req.Quantidade}

	if varianteID != nil {
		v, err := s.produtos.FindVariante(ctx, *varianteID)
		if err != nil {
			return nil, traduzir(err, "variante")
		}
		if v.ProdutoID != p.ID {
			return nil, apperror.New(apperror.CodeValidacao, "a variante não pertence ao produto")
		}
		if v.EstoqueAtual < req.Quantidade {
			return nil, apperror.EstoqueInsuficiente(p.Nome+" - "+v.Nome, "un", qtd, decimal.NewFromInt(int64(v.EstoqueAtual)))
		}
		err = runTx(ctx, s.produtos.DB(), func(tx *gorm.DB) error {
			if err := s.produtos.BaixarEstoqueVarianteTx(tx, v.ID, req.Quantidade); err != nil {
				return traduzir(err, "variante")
			}
			trilha.Registrar(model.AcaoAtualizar, "variants", v.ID,
				snapshotEstoque{v.EstoqueAtual}, snapshotEstoque{v.EstoqueAtual - req.Quantidade})
			return nil
		})
		if err != nil {
			return nil, err
		}
		resp.EstoqueRestante = v.EstoqueAtual - req.Quantidade
		trilha.Publicar(ctx, s.auditoria)
		return resp, nil
	}

	parcelas, err := s.expandirKit(s.produtos.DB().WithContext(ctx), p.ID, req.Quantidade)
	if err != nil {
		return nil, err
	}
	// Every component is checked before anything is written.
	for _, pc := range parcelas {
		if pc.produto.EstoqueAtual < pc.quantidade {
			return nil, apperror.EstoqueInsuficiente(pc.produto.Nome, "un",
				decimal.NewFromInt(int64(pc.quantidade)), decimal.NewFromInt(int64(pc.produto.EstoqueAtual)))
		}
	}
	err = runTx(ctx, s.produtos.DB(), func(tx *gorm.DB) error {
		for _, pc := range parcelas {
			if err := s.produtos.BaixarEstoqueTx(tx, pc.produto.ID, pc.quantidade); err != nil {
				return traduzir(err, "produto")
			}
			trilha.Registrar(model.AcaoAtualizar, "products", pc.produto.ID,
				snapshotEstoque{pc.produto.EstoqueAtual}, snapshotEstoque{pc.produto.EstoqueAtual - pc.quantidade})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	trilha.Publicar(ctx, s.auditoria)

	if p.EhKit() {
		efetivo, err := s.EstoqueEfetivo(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		resp.EstoqueRestante = efetivo.EstoqueEfetivo
	} else {
		resp.EstoqueRestante = p.EstoqueAtual - req.Quantidade
	}
	log.Info().Str("produto", p.Nome).Int("quantidade", req.Quantidade).Msg("baixa de produto acabado")
	return resp, nil
}

// ── Reports ──────────────────────────────────────────────────────────────────

func (s *estoqueService) Conferir(ctx context.Context, materialID uuid.UUID) (*dto.ConferenciaResponse, error) {
	m, err := s.materiais.FindByID(ctx, materialID)
	if err != nil {
		return nil, traduzir(err, "material")
	}
	soma, total, err := s.movimentacoes.SomaPorMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	return &dto.ConferenciaResponse{
		MaterialID:      m.ID.String(),
		Nome:            m.Nome,
		EstoqueAtual:    m.EstoqueAtual,
		SomaMovimentos:  soma,
		Diferenca:       m.EstoqueAtual.Sub(soma),
		Consistente:     m.EstoqueAtual.Equal(soma),
		TotalMovimentos: total,
	}, nil
}

func (s *estoqueService) Alertas(ctx context.Context) ([]dto.AlertaEstoqueResponse, error) {
	materiais, err := s.materiais.ListAbaixoDoMinimo(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaEstoqueResponse, 0, len(materiais))
	for _, m := range materiais {
		out = append(out, dto.AlertaEstoqueResponse{
			MaterialID:    m.ID.String(),
			Nome:          m.Nome,
			Unidade:       m.Unidade,
			EstoqueAtual:  m.EstoqueAtual,
			EstoqueMinimo: m.EstoqueMinimo,
			Deficit:       m.EstoqueMinimo.Sub(m.EstoqueAtual),
		})
	}
	return out, nil
}

func (s *estoqueService) Movimentacoes(ctx context.Context, materialID uuid.UUID, filter dto.MovimentacaoFilter) (*dto.MovimentacaoListResponse, error) {
	if _, err := s.materiais.FindByID(ctx, materialID); err != nil {
		return nil, traduzir(err, "material")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 50
	}
	repoFilter := repository.MovimentacaoFilter{
		MaterialID: &materialID,
		Tipo:       filter.Tipo,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.LoteID != "" {
		loteID, err := uuid.Parse(filter.LoteID)
		if err != nil {
			return nil, apperror.New(apperror.CodeValidacao, "lote_id inválido")
		}
		repoFilter.LoteIDs = []uuid.UUID{loteID}
	}
	rows, total, err := s.movimentacoes.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimentacaoResponse, 0, len(rows))
	for i := range rows {
		data = append(data, movimentacaoToResponse(&rows[i]))
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &dto.MovimentacaoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pages,
	}, nil
}

func movimentacaoToResponse(m *model.MovimentacaoEstoque) dto.MovimentacaoResponse {
	resp := dto.MovimentacaoResponse{
		ID:              m.ID.String(),
		MaterialID:      m.MaterialID.String(),
		Tipo:            m.Tipo,
		Quantidade:      m.Quantidade,
		EstoqueAnterior: m.EstoqueAnterior,
		EstoqueNovo:     m.EstoqueNovo,
		Custo:           m.Custo,
		Nota:            m.Nota,
		UsuarioNome:     m.UsuarioNome,
		CreatedAt:       m.CreatedAt,
	}
	if m.Material != nil {
		resp.Material = m.Material.Nome
	}
	if m.LoteID != nil {
		id := m.LoteID.String()
		resp.LoteID = &id
	}
	return resp
}

func movimentacoesToResponse(movs []model.MovimentacaoEstoque) []dto.MovimentacaoResponse {
	out := make([]dto.MovimentacaoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movimentacaoToResponse(&movs[i]))
	}
	return out
}
