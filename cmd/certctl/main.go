package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/cmd/certctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Lookup  commands.LookupCmd `cmd:"" help:"Look up a certificate identifier on the ledger"`
		Verify  commands.VerifyCmd `cmd:"" help:"Verify a certificate PDF"`
		Issue   commands.IssueCmd  `cmd:"" help:"Issue a single certificate"`
		Bulk    commands.BulkCmd   `cmd:"" help:"Issue certificates from a CSV file"`
		Debug   bool               `help:"Enable debug mode."`
		Config  string             `help:"Path to the YAML config file." env:"CONFIG_PATH" type:"path"`
		Version kong.VersionFlag
	}
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if err := godotenv.Load(".env"); err != nil {
		var pathError *fs.PathError
		if !errors.As(err, &pathError) {
			log.Fatalf("parsing .env file: %v", err)
		}
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	if cli.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Config:  cli.Config,
		Out:     os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
