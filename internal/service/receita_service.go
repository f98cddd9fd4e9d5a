package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Catalogo is the read side of the product catalog the resolver needs.
// repository.ProdutoRepository satisfies it.
type Catalogo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Produto, error)
}

// Necessidade is one resolved material requirement.
type Necessidade struct {
	Material   *model.Material
	Quantidade decimal.Decimal
}

func (n Necessidade) SemControle() bool { return n.Material.SemControleDeEstoque() }

// ReceitaService expands a product's bill of materials.
type ReceitaService interface {
	// Resolver flattens the recipe of produtoID scaled by quantidade,
	// walking kit compositions recursively. Repeated materials are summed
	// and the result keeps first-appearance order.
	Resolver(ctx context.Context, produtoID uuid.UUID, quantidade decimal.Decimal) ([]Necessidade, error)
	Resolucao(ctx context.Context, produtoID uuid.UUID, quantidade decimal.Decimal) (*dto.ResolucaoResponse, error)
}

type receitaService struct {
	catalogo Catalogo
}

func NewReceitaService(catalogo Catalogo) ReceitaService {
	return &receitaService{catalogo: catalogo}
}

type acumulador struct {
	itens  []Necessidade
	indice map[uuid.UUID]int
	cache  map[uuid.UUID]*model.Produto
}

func (a *acumulador) somar(m *model.Material, qtd decimal.Decimal) {
	if i, ok := a.indice[m.ID]; ok {
		a.itens[i].Quantidade = a.itens[i].Quantidade.Add(qtd)
		return
	}
	a.indice[m.ID] = len(a.itens)
	a.itens = append(a.itens, Necessidade{Material: m, Quantidade: qtd})
}

func (s *receitaService) Resolver(ctx context.Context, produtoID uuid.UUID, quantidade decimal.Decimal) ([]Necessidade, error) {
	acc := &acumulador{
		indice: make(map[uuid.UUID]int),
		cache:  make(map[uuid.UUID]*model.Produto),
	}
	if err := s.expandir(ctx, produtoID, quantidade, make(map[uuid.UUID]bool), acc); err != nil {
		return nil, err
	}
	return acc.itens, nil
}

func (s *receitaService) expandir(ctx context.Context, id uuid.UUID, qtd decimal.Decimal, caminho map[uuid.UUID]bool, acc *acumulador) error {
	if caminho[id] {
		return apperror.Newf(apperror.CodeConfiguracaoInvalida,
			"composição de kit cíclica: o produto %s contém a si mesmo", id)
	}
	p, err := s.produto(ctx, id, acc)
	if err != nil {
		return err
	}

	caminho[id] = true
	defer delete(caminho, id)

	if p.EhKit() {
		for _, c := range p.Componentes {
			fator := qtd.Mul(decimal.NewFromInt(int64(c.Quantidade)))
			if err := s.expandir(ctx, c.ProdutoID, fator, caminho, acc); err != nil {
				return err
			}
		}
		return nil
	}

	for _, item := range p.Receita {
		if item.Material == nil {
			return apperror.Newf(apperror.CodeNaoEncontrado,
				"material %s da receita de %s não encontrado", item.MaterialID, p.Nome)
		}
		acc.somar(item.Material, item.Quantidade.Mul(qtd))
	}
	return nil
}

func (s *receitaService) produto(ctx context.Context, id uuid.UUID, acc *acumulador) (*model.Produto, error) {
	if p, ok := acc.cache[id]; ok {
		return p, nil
	}
	p, err := s.catalogo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NaoEncontrado("produto")
		}
		return nil, fmt.Errorf("carregando produto %s: %w", id, err)
	}
	acc.cache[id] = p
	return p, nil
}

func (s *receitaService) Resolucao(ctx context.Context, produtoID uuid.UUID, quantidade decimal.Decimal) (*dto.ResolucaoResponse, error) {
	if !quantidade.IsPositive() {
		return nil, apperror.New(apperror.CodeValidacao, "quantidade deve ser maior que zero")
	}
	p, err := s.catalogo.FindByID(ctx, produtoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NaoEncontrado("produto")
		}
		return nil, err
	}
	necessidades, err := s.Resolver(ctx, produtoID, quantidade)
	if err != nil {
		return nil, err
	}
	resp := &dto.ResolucaoResponse{
		ProdutoID:  produtoID.String(),
		Quantidade: quantidade,
		Materiais:  necessidadesToDTO(necessidades),
		Avisos:     avisosProduto(p),
	}
	return resp, nil
}

// semReceita is the ConsistencyWarning case: nothing to deduct at all.
func semReceita(p *model.Produto) bool {
	return len(p.Receita) == 0 && len(p.Componentes) == 0
}

func avisosProduto(p *model.Produto) []dto.Aviso {
	if !semReceita(p) {
		return nil
	}
	return []dto.Aviso{{
		Codigo:   dto.AvisoSemReceita,
		Mensagem: fmt.Sprintf("o produto %s não tem receita nem composição; nenhum material será baixado", p.Nome),
	}}
}

func necessidadesToDTO(ns []Necessidade) []dto.NecessidadeMaterial {
	out := make([]dto.NecessidadeMaterial, 0, len(ns))
	for _, n := range ns {
		out = append(out, dto.NecessidadeMaterial{
			MaterialID:  n.Material.ID.String(),
			Nome:        n.Material.Nome,
			Unidade:     n.Material.Unidade,
			Tipo:        n.Material.Tipo,
			Quantidade:  n.Quantidade,
			SemControle: n.SemControle(),
		})
	}
	return out
}

// filtrar keeps the requirements accepted by keep, preserving order.
func filtrar(ns []Necessidade, keep func(*model.Material) bool) []Necessidade {
	var out []Necessidade
	for _, n := range ns {
		if keep(n.Material) {
			out = append(out, n)
		}
	}
	return out
}

// somarNecessidades merges lists, summing repeated materials in
// first-appearance order.
func somarNecessidades(listas ...[]Necessidade) []Necessidade {
	acc := &acumulador{indice: make(map[uuid.UUID]int)}
	for _, l := range listas {
		for _, n := range l {
			acc.somar(n.Material, n.Quantidade)
		}
	}
	return acc.itens
}
