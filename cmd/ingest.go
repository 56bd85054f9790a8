package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/doganyilmaz/profile-assistant/config"
	"github.com/doganyilmaz/profile-assistant/internal/fetch"
	"github.com/doganyilmaz/profile-assistant/internal/rag"
	srv "github.com/doganyilmaz/profile-assistant/internal/server"
	"github.com/doganyilmaz/profile-assistant/internal/store"
	"github.com/doganyilmaz/profile-assistant/provider"
	"github.com/doganyilmaz/profile-assistant/tools/embedding"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var profileID int64

	var ingest = &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the knowledge base for a profile (or all profiles)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			dsn, err := cfg.Databases.Postgres.DSN()
			if err != nil {
				return err
			}
			st, err := store.NewWithDSN(ctx, dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			llm, err := provider.NewProvider(provider.OpenAI, cfg.Providers)
			if err != nil {
				return err
			}
			logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
			pipeline, err := rag.NewIngestionPipeline(st, embedding.NewEmbedding(llm), rag.ChunkingConfig{
				ChunkSize: cfg.RAG.ChunkSize,
				Overlap:   cfg.RAG.ChunkOverlap,
			}, logger)
			if err != nil {
				return err
			}
			pipeline.SetRetryPolicy(cfg.RAG.EmbedRetries, cfg.RAG.EmbedBackoff)

			httpClient := fetch.NewHTTPClient(cfg.General.RequestTimeout, 2, 0)
			ingestor := &srv.Ingestor{
				Store:      st,
				Pipeline:   pipeline,
				GitHub:     fetch.NewGitHubClient(httpClient, cfg.Ingestion.GitHubToken),
				GitHubUser: cfg.Ingestion.GitHubUser,
				Logger:     logger,
			}

			ids := []int64{profileID}
			if profileID <= 0 {
				ids, err = st.ListProfiles(ctx)
				if err != nil {
					return err
				}
			}
			for _, id := range ids {
				count, err := ingestor.ReingestProfile(ctx, id)
				if err != nil {
					return fmt.Errorf("profile %d: %w", id, err)
				}
				fmt.Printf("profile %d: %d chunks\n", id, count)
			}
			return nil
		},
	}
	ingest.Flags().Int64Var(&profileID, "profile", 0, "profile id (0 = all profiles)")
	ingest.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ingest
}
