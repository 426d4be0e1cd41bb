package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	"github.com/Strob0t/TicketForge/internal/adapter/postgres"
	"github.com/Strob0t/TicketForge/internal/service"
)

func knowledgeCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the knowledge corpus",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Upsert documents from a YAML corpus file into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			docs, err := corpus.FileLoader{Path: args[0]}.Load(ctx)
			if err != nil {
				return err
			}

			pool, err := postgres.NewPool(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()
			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}

			store := postgres.NewStore(pool)
			svc := service.NewKnowledgeService(corpus.New(nil), corpus.StoreLoader{Store: store}, store)
			n, err := svc.Import(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d document(s) from %s\n", n, args[0])
			return nil
		},
	})
	return cmd
}
