package service_test

import (
	"testing"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestNovoCustoMedio(t *testing.T) {
	cases := []struct {
		name                       string
		estoque, preco, qtd, custo string
		esperado                   string
	}{
		{"primeira entrada", "0", "0", "10", "50", "5"},
		{"média ponderada", "10", "5", "10", "70", "6"},
		{"estoque negativo usa só a compra", "-2", "9", "4", "20", "5"},
		{"quantidade zero mantém o preço", "10", "5", "0", "100", "5"},
		{"arredonda em quatro casas", "3", "1", "3", "1", "0.6667"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.NovoCustoMedio(dec(tc.estoque), dec(tc.preco), dec(tc.qtd), dec(tc.custo))
			assert.True(t, dec(tc.esperado).Equal(got), "esperado %s, obtido %s", tc.esperado, got)
		})
	}
}
