package service

import "github.com/shopspring/decimal"

// casasPreco matches the precision of materials.preco_unitario.
const casasPreco = 4

// NovoCustoMedio is the moving weighted-average unit cost after an entry of
// qtdAdicionada units that cost custoCompra in total.
//
//	(estoque × preço + custo) / (estoque + qtd)   when estoque > 0
//	custo / qtd                                   otherwise
//
// A non-positive qtdAdicionada leaves the price unchanged.
func NovoCustoMedio(estoqueAnterior, precoAnterior, qtdAdicionada, custoCompra decimal.Decimal) decimal.Decimal {
	if !qtdAdicionada.IsPositive() {
		return precoAnterior
	}
	if estoqueAnterior.IsPositive() {
		valor := estoqueAnterior.Mul(precoAnterior).Add(custoCompra)
		return valor.Div(estoqueAnterior.Add(qtdAdicionada)).Round(casasPreco)
	}
	return custoCompra.Div(qtdAdicionada).Round(casasPreco)
}
