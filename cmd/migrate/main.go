// Command migrate runs goose against the embedded migrations.
//
//	migrate up | down | status | version | redo | reset | up-to VERSION
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/infra"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	timeout := flag.Duration("timeout", 5*time.Minute, "tempo máximo da execução")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "uso: %s [flags] COMANDO [ARGS]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao carregar configuração")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao conectar no postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	command := flag.Arg(0)
	if err := infra.RunMigrations(ctx, db, command, flag.Args()[1:]...); err != nil {
		log.Fatal().Err(err).Str("comando", command).Msg("migração falhou")
	}
	log.Info().Str("comando", command).Msg("migração concluída")
}
