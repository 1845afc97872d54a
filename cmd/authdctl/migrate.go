package main

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	migrations "github.com/pulsegram/authd/migrations/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Aplica las migraciones embebidas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}
			if action != "up" && action != "down" {
				return fmt.Errorf("unknown action %q", action)
			}
			if flagDSN == "" {
				return fmt.Errorf("--dsn (o STORAGE_DSN) requerido")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, flagDSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			files, err := listSQL(action)
			if err != nil {
				return err
			}
			if action == "down" {
				// Las down van en orden inverso.
				sort.Sort(sort.Reverse(sort.StringSlice(files)))
			}
			for _, f := range files {
				sql, err := fs.ReadFile(migrations.FS, f)
				if err != nil {
					return err
				}
				if _, err := pool.Exec(ctx, string(sql)); err != nil {
					return fmt.Errorf("exec %s: %w", f, err)
				}
				fmt.Println("applied", f)
			}
			return nil
		},
	}
	return cmd
}

func listSQL(action string) ([]string, error) {
	suffix := "_" + action + ".sql"
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
