package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var outlineOpts struct {
	input  string
	output string
	format string
	dump   bool
}

var outlineCmd = &cobra.Command{
	Use:   "outline [file.pdf...]",
	Short: "Extract the title and heading outline of PDF files",
	Long: `Extract the title and H1/H2/H3 outline of each PDF.

Files are given as arguments or found in --input. With --output each result
is written to <output>/<name>.json (or .yaml); otherwise results go to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outlineOpts.format != "json" && outlineOpts.format != "yaml" {
			return fmt.Errorf("unknown format %q", outlineOpts.format)
		}
		files, err := outlineInputs(outlineOpts.input, args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no PDF files to process")
		}
		if outlineOpts.output != "" {
			if err := os.MkdirAll(outlineOpts.output, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		ext, err := openOutliner()
		if err != nil {
			return err
		}

		failed := 0
		for _, f := range files {
			if err := outlineOne(cmd.Context(), ext, f, cmd.OutOrStdout()); err != nil {
				failed++
				log.Error("outline failed", "file", f, "error", err)
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Failed %s: %v\n", f, err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	f := outlineCmd.Flags()
	f.StringVarP(&outlineOpts.input, "input", "i", "", "directory of PDFs to process")
	f.StringVarP(&outlineOpts.output, "output", "o", "", "directory for result files (default stdout)")
	f.StringVar(&outlineOpts.format, "format", "json", "output format: json or yaml")
	f.BoolVar(&outlineOpts.dump, "dump", false, "pretty-print merged headings with scores to stderr")
	f.String("classifier", "artifact", "heading classifier: artifact or rules")
	f.String("artifact", "models/heading_classifier.json", "classifier artifact path")
	rootCmd.AddCommand(outlineCmd)
}

// outlineInputs returns args plus every PDF in dir, sorted and deduplicated.
func outlineInputs(dir string, args []string) ([]string, error) {
	files := append([]string{}, args...)
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read input dir: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && parser.IsPDF(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(files)
	out := files[:0]
	for i, f := range files {
		if i == 0 || f != files[i-1] {
			out = append(out, f)
		}
	}
	return out, nil
}

func outlineOne(ctx context.Context, ext *outline.Extractor, path string, stdout io.Writer) error {
	headings, err := ext.Headings(ctx, path)
	if err != nil {
		return err
	}
	if outlineOpts.dump {
		pp.Fprintln(os.Stderr, headings)
	}
	res := outline.Split(headings)

	data, err := encodeOutline(res, outlineOpts.format)
	if err != nil {
		return err
	}
	if outlineOpts.output == "" {
		_, err = stdout.Write(data)
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + outlineOpts.format
	dest := filepath.Join(outlineOpts.output, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	log.Info("outline written", "file", path, "output", dest, "headings", len(res.Outline))
	return nil
}

func encodeOutline(res outline.Result, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(res)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
