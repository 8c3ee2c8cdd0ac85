package cli

import (
	"context"
	"defectlens/pkg/acquire"
	"defectlens/pkg/artifact"
	"defectlens/pkg/detect"
	"defectlens/pkg/display"
	"defectlens/pkg/downloader"
	"defectlens/pkg/inspect"
	"defectlens/pkg/store"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNeedItem = errors.New("not a terminal: choose a batch item with --item N")

// acquireFunc drives one acquisition on o and returns the handed-off image.
type acquireFunc func(ctx context.Context, o *acquire.Orchestrator, maxBytes int64) (*artifact.Image, error)

func (a *App) newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Acquire an image and inspect it for defects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "file <path>",
		Short: "Analyze a local image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), a.Disp, func(ctx context.Context, o *acquire.Orchestrator, maxBytes int64) (*artifact.Image, error) {
				f, err := acquire.ReadLocalFile(args[0], maxBytes)
				if err != nil {
					return nil, err
				}
				return o.AcquireFromFile(ctx, f).Wait(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "url <url>",
		Short: "Analyze an image link (share links are converted to direct downloads)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), a.Disp, func(ctx context.Context, o *acquire.Orchestrator, _ int64) (*artifact.Image, error) {
				return o.AcquireFromURL(ctx, args[0]).Wait(ctx)
			})
		},
	})

	var item int
	batch := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Pick one image from a list of links, one per line",
		Long: `Reads newline separated links from a file, or from stdin when the
argument is "-" or missing. On a terminal an interactive list lets you
fetch items until one succeeds; otherwise --item selects the item.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readBatchInput(args)
			if err != nil {
				return err
			}
			// the picker owns the terminal, so fetch progress stays off it
			progress := a.Disp
			if item == 0 && a.IsTTY() {
				progress = display.Discard()
			}
			return a.runAnalyze(cmd.Context(), progress, func(ctx context.Context, o *acquire.Orchestrator, _ int64) (*artifact.Image, error) {
				return a.pickFromBatch(ctx, o, text, item)
			})
		},
	}
	batch.Flags().IntVar(&item, "item", 0, "Fetch item N (1-based) without the interactive list")
	cmd.AddCommand(batch)

	return cmd
}

func (a *App) readBatchInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(a.In)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read batch file: %w", err)
	}
	return string(b), nil
}

func (a *App) pickFromBatch(ctx context.Context, o *acquire.Orchestrator, text string, item int) (*artifact.Image, error) {
	fut := o.AcquireFromURLBatch(text)
	b := o.Batch()
	if b == nil {
		return fut.Wait(ctx)
	}

	if item > 0 {
		return o.FetchBatchItem(ctx, item-1).Wait(ctx)
	}
	if !a.IsTTY() {
		a.printBatch(b)
		return nil, errNeedItem
	}

	a.Disp.Close()
	return a.Pick(ctx, o, b, a.In, a.Out)
}

func (a *App) printBatch(b *acquire.Batch) {
	rows := [][]string{}
	for i, it := range b.Items() {
		rows = append(rows, []string{strconv.Itoa(i + 1), string(it.Link.Provider), it.Link.SuggestedName, it.Link.OriginalURL})
	}
	a.Disp.Close()
	fmt.Fprint(a.Out, display.RenderTable([]string{"ITEM", "PROVIDER", "NAME", "URL"}, rows))
}

// runAnalyze wires fetcher, detector and stores, runs acq with fetch
// progress on progress, then inspects the acquired image and prints the
// stored record.
func (a *App) runAnalyze(ctx context.Context, progress display.Display, acq acquireFunc) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	detector, err := detect.New(cfg.Detect)
	if err != nil {
		return err
	}
	records, err := store.OpenSQLite(ctx, cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer records.Close()

	var objects inspect.ObjectStore
	if !cfg.Store.DisableUpload {
		objects = store.NewFSObjectStore(cfg.Store.ObjectsDir, cfg.Store.PublicBaseURL)
	}
	svc := inspect.New(detector, records, objects)

	onAcquired := func(ctx context.Context, img *artifact.Image) {
		zerolog.Ctx(ctx).Debug().Str("name", img.Name).Str("mime", img.MimeType).Msg("Image acquired")
	}
	orch := acquire.New(downloader.New(cfg.Fetch), onAcquired,
		acquire.WithDisplay(progress),
		acquire.WithMaxBytes(cfg.Fetch.MaxBytes))

	img, err := acq(ctx, orch, cfg.Fetch.MaxBytes)
	if err != nil {
		return err
	}

	task := a.Disp.StartTask(img.Name)
	task.SetStage("Analyze", img.Name)
	rec, err := svc.Inspect(ctx, img)
	task.Done()
	if err != nil {
		return err
	}
	a.Disp.Close()
	fmt.Fprint(a.Out, a.renderRecord(img, rec))
	return nil
}
