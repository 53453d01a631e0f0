package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsift/internal/api"
	"github.com/dgallion1/docsift/internal/collection"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/spf13/cobra"
)

var collectionRoot string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		outliner, err := openOutliner()
		if err != nil {
			return err
		}
		emb, err := openEmbedder(ctx)
		if err != nil {
			return err
		}
		defer emb.Close()

		runner := &collection.Runner{
			Source:      parser.FilePages{Opts: parserOptions()},
			Embedder:    emb,
			Log:         log,
			TopK:        cfg.Ranking.TopK,
			MaxChars:    cfg.Ranking.ExcerptMaxChars,
			Concurrency: cfg.MaxConcurrentEmbed,
		}

		// Initialize pipeline.
		orch := pipeline.NewOrchestrator(pipeline.Options{
			WorkerCount:  cfg.WorkerCount,
			MaxQueueSize: cfg.MaxQueueSize,
			JobTTL:       cfg.JobTTL,
			WriteOutput:  true,
		}, runner, log)
		orch.Start(ctx)

		// Initialize HTTP server.
		srv := api.NewServer(orch, outliner, emb.Stats, log, api.Options{
			APIKey:         cfg.APIKey,
			MaxUploadBytes: cfg.MaxUploadBytes,
			CollectionRoot: collectionRoot,
		})

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting docsift", "port", cfg.Port, "auth", cfg.APIKey != "")
		err = httpServer.ListenAndServe()
		orch.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8090", "listen port")
	serveCmd.Flags().String("api-key", "", "require this bearer token on /api routes")
	serveCmd.Flags().Int("workers", 2, "collection worker count")
	serveCmd.Flags().StringVar(&collectionRoot, "collection-root", "", "confine submitted collection paths to this directory")
	rootCmd.AddCommand(serveCmd)
}
