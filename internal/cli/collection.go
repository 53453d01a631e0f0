package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsift/internal/collection"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection [dir...]",
	Short: "Rank sections of each collection for its persona and task",
	Long: fmt.Sprintf(`Process collection directories. Each holds %s, a %s/ folder
with the listed documents, and receives %s.

With no arguments every %s* directory under the working directory is processed.`,
		collection.InputFile, collection.DocsDir, collection.OutputFile, collection.DirPrefix),
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := args
		if len(dirs) == 0 {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if dirs, err = collection.Discover(wd); err != nil {
				return err
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no %s* directories found in %s", collection.DirPrefix, wd)
			}
		}

		emb, err := openEmbedder(cmd.Context())
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

		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		failed := 0
		for _, dir := range dirs {
			res, err := runner.Run(cmd.Context(), dir)
			if err == nil {
				err = collection.WriteResult(filepath.Join(dir, collection.OutputFile), res)
			}
			if err != nil {
				failed++
				log.Error("collection failed", "dir", dir, "error", err)
				red.Fprintf(cmd.ErrOrStderr(), "Failed %s: %v\n", dir, err)
				continue
			}
			green.Fprintf(cmd.OutOrStdout(), "Completed %s\n", dir)
		}

		snap := emb.Stats.Snapshot()
		log.Info("embedding stats", "calls", snap.Count, "cache_hits", snap.CacheHits, "p95_ms", snap.P95Ms)
		if failed > 0 {
			return fmt.Errorf("%d of %d collections failed", failed, len(dirs))
		}
		return nil
	},
}

func init() {
	f := collectionCmd.Flags()
	f.Int("top-k", 5, "sections to select per collection")
	f.String("embedding-provider", "hash", "embedding provider: hash, ollama, openai, gemini")
	f.String("embedding-model", "all-MiniLM-L6-v2", "embedding model name")
	f.String("embedding-cache", "", "badger directory for cached embeddings")
	rootCmd.AddCommand(collectionCmd)
}
