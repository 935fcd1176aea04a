package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/hmis-dev/hmis-sdk/migrations"
	"github.com/hmis-dev/hmis-sdk/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the embedded schema migrations",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", goose.Up),
		migrateSubcommand("down", "Roll back the latest migration", goose.Down),
		migrateSubcommand("status", "Print the status of every migration", goose.Status),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(*sql.DB, string, ...goose.OptionsFunc) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			db, err := sql.Open("postgres", conf.Database.ConnectionString())
			if err != nil {
				return withCode(exitDB, fmt.Errorf("open database: %w", err))
			}
			defer db.Close()

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			if err := run(db, "."); err != nil {
				return withCode(exitDB, fmt.Errorf("migrate %s: %w", use, err))
			}
			return nil
		},
	}
}
