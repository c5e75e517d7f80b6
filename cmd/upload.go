package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmaflow/pharmaflow/internal/pdfcheck"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/progress"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [pattern...]",
	Short: "Upload PDF documents for analysis",
	Long: `Uploads every PDF matching the given patterns. Patterns support ** globs,
for example "contracts/**/*.pdf". Non-PDF matches are skipped. With --check
each file is parsed locally first and invalid PDFs are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().Bool("check", false, "validate PDFs locally before uploading")
	uploadCmd.Flags().Int("concurrency", 0, "parallel uploads (default upload.concurrency)")
	rootCmd.AddCommand(uploadCmd)
}

// uploader is the part of the client a batch upload needs.
type uploader interface {
	UploadDocument(ctx context.Context, filename string, r io.Reader) (*pharmaapi.UploadResult, error)
}

// uploadOutcome is the result for one file.
type uploadOutcome struct {
	Path   string
	Result *pharmaapi.UploadResult
	Err    error
}

func runUpload(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	cfg, logger, client, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if concurrency <= 0 {
		concurrency = cfg.Upload.Concurrency
	}

	out := cmd.OutOrStdout()
	paths, skipped, err := expandPatterns(args)
	if err != nil {
		return err
	}
	for _, p := range skipped {
		fmt.Fprintf(out, "skipping %s: not a PDF\n", p)
	}
	if check {
		paths = validatePDFs(out, paths, logger)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files to upload")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := uploadAll(ctx, client, paths, concurrency, progress.NewReporter(os.Stderr))

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			logger.Error("upload failed", zap.String("path", o.Path), zap.Error(o.Err))
			fmt.Fprintf(out, "FAILED  %s: %v\n", o.Path, o.Err)
			continue
		}
		fmt.Fprintf(out, "OK      %s -> %s (%d pages)\n", o.Path, o.Result.DocumentID, o.Result.Pages)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
	}
	return nil
}

// expandPatterns resolves glob patterns to a sorted, de-duplicated list of
// regular files. Matches without the .pdf extension are returned separately.
func expandPatterns(patterns []string) (pdfs, skipped []string, err error) {
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			if info, err := os.Stat(m); err != nil || !info.Mode().IsRegular() {
				continue
			}
			if pharmaapi.IsPDF(filepath.Base(m)) {
				pdfs = append(pdfs, m)
			} else {
				skipped = append(skipped, m)
			}
		}
	}
	slices.Sort(pdfs)
	slices.Sort(skipped)
	return pdfs, skipped, nil
}

// validatePDFs keeps the paths that parse as PDFs.
func validatePDFs(w io.Writer, paths []string, logger *zap.Logger) []string {
	valid := paths[:0:0]
	for _, p := range paths {
		rep, err := pdfcheck.Check(p)
		if err != nil {
			logger.Warn("invalid pdf", zap.String("path", p), zap.Error(err))
			fmt.Fprintf(w, "skipping %s: %v\n", p, err)
			continue
		}
		logger.Debug("pdf ok", zap.String("path", p), zap.Int("pages", rep.Pages))
		valid = append(valid, p)
	}
	return valid
}

// uploadAll uploads paths with at most concurrency requests in flight. One
// failure does not stop the others; outcomes keep the order of paths.
func uploadAll(ctx context.Context, api uploader, paths []string, concurrency int, reporter progress.Reporter) []uploadOutcome {
	outcomes := make([]uploadOutcome, len(paths))
	reporter.Start(len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			res, err := uploadFile(gctx, api, path)
			outcomes[i] = uploadOutcome{Path: path, Result: res, Err: err}
			if err != nil {
				reporter.Advance(filepath.Base(path) + " failed")
			} else {
				reporter.Advance(filepath.Base(path))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	reporter.Finish(failed)
	return outcomes
}

func uploadFile(ctx context.Context, api uploader, path string) (*pharmaapi.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return api.UploadDocument(ctx, filepath.Base(path), f)
}
