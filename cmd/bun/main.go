package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	commentmigrations "github.com/esolangs/codeguessing/app/modules/comment/infrastructure/repositories/migrations"
	guessmigrations "github.com/esolangs/codeguessing/app/modules/guess/infrastructure/repositories/migrations"
	roundmigrations "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories/migrations"
	scoremigrations "github.com/esolangs/codeguessing/app/modules/score/infrastructure/repositories/migrations"
	submissionmigrations "github.com/esolangs/codeguessing/app/modules/submission/infrastructure/repositories/migrations"
	usermigrations "github.com/esolangs/codeguessing/app/modules/user/infrastructure/repositories/migrations"
	"github.com/esolangs/codeguessing/config"
)

type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	// Ordered so foreign keys resolve: people and rounds first, then the
	// tables referencing them.
	migrators := []moduleMigrator{
		{"user", migrate.NewMigrator(db, usermigrations.Migrations)},
		{"round", migrate.NewMigrator(db, roundmigrations.Migrations)},
		{"submission", migrate.NewMigrator(db, submissionmigrations.Migrations)},
		{"guess", migrate.NewMigrator(db, guessmigrations.Migrations)},
		{"score", migrate.NewMigrator(db, scoremigrations.Migrations)},
		{"comment", migrate.NewMigrator(db, commentmigrations.Migrations)},
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newMultiModuleDBCommand(migrators []moduleMigrator) *cli.Command {
	lookup := func(name string) (*migrate.Migrator, error) {
		for _, m := range migrators {
			if m.name == name {
				return m.migrator, nil
			}
		}
		return nil, fmt.Errorf("invalid module name: %s", name)
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						group, err := m.migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					// Reverse order so dependent tables drop first.
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					migrator, err := lookup(c.Args().First())
					if err != nil {
						return err
					}
					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}
