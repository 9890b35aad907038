// cmd/seedroster/main.go: loads roster entries from a CSV file.
// Usage: go run ./cmd/seedroster roster.csv
// CSV rows: external_id,display_name[,biometric_token]; a header line is optional.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ucsattendance/internal/config"
	"ucsattendance/internal/infra"
	"ucsattendance/internal/repository"
	"ucsattendance/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: seedroster <roster.csv>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Str("file", os.Args[1]).Msg("read roster file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := service.NewRosterService(repository.NewRosterRepository(db), service.SystemClock)
	resp, err := svc.Import(ctx, data)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	for _, e := range resp.Errors {
		log.Warn().Int("line", e.Line).Msg(e.Message)
	}
	log.Info().Int("created", resp.Created).Int("updated", resp.Updated).Int("rejected", len(resp.Errors)).Msg("roster imported")
}
