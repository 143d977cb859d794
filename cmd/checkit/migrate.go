package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/store/sqlite"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != "sqlite" {
				return fmt.Errorf("migrate needs the sqlite backend, got %q", cfg.StoreBackend)
			}

			ctx := cmd.Context()
			db, err := sqlite.Open(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			m := sqlite.NewMigrator(db)
			applied, err := m.Up(ctx)
			if err != nil {
				return err
			}
			for _, v := range applied {
				pterm.Success.Printfln("applied %s", v)
			}

			all, err := m.Applied(ctx)
			if err != nil {
				return err
			}
			pterm.Info.Printfln("%s is at %d migration(s)", cfg.DBPath, len(all))
			return nil
		},
	}
}
