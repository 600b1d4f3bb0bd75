// Command cwl-admin is the operations CLI for the CWL account-link schema:
// it applies migrations and inspects link rows without touching the host
// application.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ubc/wiki-cwl-link/config"
	"github.com/ubc/wiki-cwl-link/internal/bootstrap"
	"github.com/ubc/wiki-cwl-link/internal/data"
	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	"github.com/ubc/wiki-cwl-link/internal/ports"
	"github.com/ubc/wiki-cwl-link/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply link-table schema migrations",
			run:         runMigrate,
		},
		"lookup": {
			name:        "lookup",
			description: "Show the link row for a CWL login name",
			run:         runLookup,
		},
		"allocate-check": {
			name:        "allocate-check",
			description: "Dry-run username allocation for a display name and login name",
			run:         runAllocateCheck,
		},
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: cwl-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, cmd := range commands() {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", cmd.name, cmd.description)
	}
}

func connect(ctx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig:    ctx.Config.Postgres,
		RedisConfig: ctx.Config.Redis,
		Logger:      ctx.Logger,
	})
}

func closeDB(ctx *commandContext, db *sql.DB) {
	if err := db.Close(); err != nil {
		ctx.Logger.ErrorContext(ctx.Ctx, "close database", "error", err)
	}
}

func runMigrate(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(ctx, db)

	runCtx, cancel := context.WithTimeout(ctx.Ctx, *timeout)
	defer cancel()

	if err := data.RunMigrations(runCtx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	ctx.Logger.InfoContext(runCtx, "migrations applied")
	return nil
}

func runLookup(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	login := fs.String("login", "", "CWL login name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("-login is required")
	}

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(ctx, db)

	linked, err := data.NewLinkRepo(db).GetByExternalLogin(ctx.Ctx, *login)
	if err != nil {
		if errors.Is(err, ports.ErrLinkNotFound) {
			return fmt.Errorf("no link for login %q", *login)
		}
		return err
	}
	return printJSON(os.Stdout, map[string]any{
		"local_user_id":           linked.Link.LocalUserID,
		"local_username":          linked.LocalUsername,
		"external_login_name":     linked.Link.ExternalLoginName,
		"person_id":               linked.Link.PersonID,
		"current_affiliations":    linked.Link.CurrentAffiliations,
		"historical_affiliations": linked.Link.HistoricalAffiliations,
		"display_name":            linked.Link.DisplayName,
		"updated_at":              linked.Link.UpdatedAt,
	})
}

func runAllocateCheck(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("allocate-check", flag.ContinueOnError)
	displayName := fs.String("display-name", "", "directory display name")
	login := fs.String("login", "", "CWL login name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("-login is required")
	}

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(ctx, db)

	allocator := service.NewAllocator(data.NewWikiUserRepo(db))
	username, err := allocator.Allocate(ctx.Ctx, identity.ExternalIdentity{
		LoginName:   *login,
		DisplayName: *displayName,
	})
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, map[string]any{"username": username})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
