// Command seed loads a small demo catalog: clay, glaze, labor, a mug with
// its recipe, a glaze-color variant and a two-mug gift kit.
// Opening stock is booked as ENTRADA movements so the ledger stays consistent.
package main

import (
	"context"
	"os"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/infra"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao carregar configuração")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao conectar no postgres")
	}
	ctx := context.Background()
	if err := infra.RunMigrations(ctx, db, "up"); err != nil {
		log.Fatal().Err(err).Msg("falha ao aplicar migrações")
	}
	if err := seed(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("seed falhou")
	}
	log.Info().Msg("catálogo de demonstração carregado")
}

var sistema = model.Operador{ID: uuid.Nil, Nome: "seed"}

func seed(ctx context.Context, db *gorm.DB) error {
	materiais := repository.NewMaterialRepository(db)
	estoque := service.NewEstoqueService(materiais, repository.NewMovimentacaoRepository(db),
		repository.NewProdutoRepository(db), service.NewAuditoriaLog())

	novoMaterial := func(nome, tipo, unidade string, inicial, minimo, custo int64) (*model.Material, error) {
		m := &model.Material{Nome: nome, Tipo: tipo, Unidade: unidade, EstoqueMinimo: decimal.NewFromInt(minimo)}
		if err := materiais.Create(ctx, m); err != nil {
			return nil, err
		}
		if inicial > 0 {
			_, err := estoque.RegistrarEntrada(ctx, m.ID, dto.EntradaMaterialRequest{
				Quantidade: decimal.NewFromInt(inicial),
				Custo:      decimal.NewFromInt(custo),
				Nota:       "estoque inicial",
			}, sistema)
			if err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	argila, err := novoMaterial("Argila branca", model.TipoArgila, "kg", 100, 20, 450)
	if err != nil {
		return err
	}
	esmalte, err := novoMaterial("Esmalte transparente", model.TipoEsmalte, "kg", 10, 2, 380)
	if err != nil {
		return err
	}
	azul, err := novoMaterial("Esmalte azul cobalto", model.TipoEsmalte, "kg", 5, 1, 260)
	if err != nil {
		return err
	}
	horas, err := novoMaterial("Hora de torno", model.TipoMaoDeObra, "h", 0, 0, 0)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		caneca := &model.Produto{
			Nome:      "Caneca 300ml",
			PrecoBase: decimal.NewFromInt(65),
			Markup:    decimal.RequireFromString("2.5"),
			Receita: []model.ItemReceita{
				{MaterialID: argila.ID, Quantidade: decimal.RequireFromString("0.4"), Ordem: 1},
				{MaterialID: esmalte.ID, Quantidade: decimal.RequireFromString("0.05"), Ordem: 2},
				{MaterialID: horas.ID, Quantidade: decimal.RequireFromString("0.5"), Ordem: 3},
			},
		}
		if err := tx.Create(caneca).Error; err != nil {
			return err
		}
		variante := &model.Variante{
			ProdutoID:          caneca.ID,
			Nome:               "Azul cobalto",
			AjustePreco:        decimal.NewFromInt(10),
			MaterialID:         &azul.ID,
			QuantidadeMaterial: decimal.RequireFromString("0.03"),
		}
		if err := tx.Create(variante).Error; err != nil {
			return err
		}
		kit := &model.Produto{
			Nome:        "Kit presente 2 canecas",
			PrecoBase:   decimal.NewFromInt(120),
			Markup:      decimal.NewFromInt(1),
			Componentes: []model.ComponenteKit{{ProdutoID: caneca.ID, Quantidade: 2}},
		}
		return tx.Create(kit).Error
	})
}
