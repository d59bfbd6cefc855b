package main

import (
	"fmt"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/obsrag/ai"
	"github.com/hrygo/obsrag/ai/core/embedding"
	"github.com/hrygo/obsrag/ai/indexer"
	"github.com/hrygo/obsrag/vault"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the vault and bring the vector index up to date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
		defer stop()

		st, err := openStore(ctx, p)
		if err != nil {
			return err
		}
		defer st.Close()

		corpus, err := vault.NewLoader(p.VaultDir, p.TemplatesDir).Load()
		if err != nil {
			return err
		}
		fmt.Printf("Scanned %d notes in %s\n", corpus.Len(), p.VaultDir)

		aiCfg := ai.NewConfigFromProfile(p)
		if err := aiCfg.Validate(); err != nil {
			return err
		}
		embedder, err := embedding.NewService(&aiCfg.Embedding)
		if err != nil {
			return err
		}

		ix := indexer.New(st, embedder, aiCfg.Embedding.Model, indexer.Config{
			ChunkSize:    p.ChunkSize,
			ChunkOverlap: p.ChunkOverlap,
			Concurrency:  p.EmbedConcurrency,
		})
		summary, err := ix.Run(ctx, corpus)
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d notes (%d chunks), %d unchanged, %d removed in %s\n",
			summary.Indexed, summary.Chunks, summary.Skipped, summary.Removed, summary.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
