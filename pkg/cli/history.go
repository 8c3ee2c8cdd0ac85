package cli

import (
	"context"
	"defectlens/pkg/display"
	"defectlens/pkg/store"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
)

func (a *App) newHistoryCommand() *cobra.Command {
	var (
		limit  int
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent inspections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := a.recentRecords(cmd.Context(), limit)
			if err != nil {
				return err
			}
			switch {
			case query != "":
				return a.printQuery(recs, query)
			case asJSON:
				b, err := json.MarshalIndent(recs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.Out, string(b))
				return nil
			}
			a.printHistory(recs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Number of records")
	cmd.Flags().StringVar(&query, "jq", "", "Filter records (a JSON array) with a jq expression")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")

	cmd.AddCommand(a.newExportCommand(), a.newImportCommand())
	return cmd
}

func (a *App) newExportCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "export <out.tar.zst>",
		Short: "Bundle recent records and their images into a tar.zst archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			recs, err := a.recentRecords(ctx, limit)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			images := store.NewFSObjectStore(cfg.Store.ObjectsDir, cfg.Store.PublicBaseURL)
			n, err := store.Export(ctx, f, recs, images)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(args[0])
				return fmt.Errorf("export: %w", err)
			}

			fmt.Fprintf(a.Out, "%s Exported %d record(s) and %d image(s) to %s\n", a.Theme.IconDisk, len(recs), n, args[0])
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.MaxListLimit, "Number of records")
	return cmd
}

func (a *App) newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle.tar.zst>",
		Short: "Restore records and images from a bundle written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := store.OpenSQLite(ctx, cfg.Store.DatabasePath)
			if err != nil {
				return err
			}
			defer s.Close()

			images := store.NewFSObjectStore(cfg.Store.ObjectsDir, cfg.Store.PublicBaseURL)
			total, restored, err := store.Import(ctx, args[0], s, images)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(a.Out, "%s Imported %d of %d record(s) from %s\n", a.Theme.IconDisk, restored, total, args[0])
			return nil
		},
	}
}

func (a *App) recentRecords(ctx context.Context, limit int) ([]store.Record, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.OpenSQLite(ctx, cfg.Store.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ListRecent(ctx, limit)
}

func (a *App) printHistory(recs []store.Record) {
	t := a.Theme
	if len(recs) == 0 {
		fmt.Fprintln(a.Out, "No inspections recorded.")
		return
	}
	rows := make([][]string, len(recs))
	for i, r := range recs {
		verdict := t.Check + " ok"
		if r.DefectDetected {
			verdict = t.Cross + " defective"
		}
		rows[i] = []string{r.ID, humanize.Time(r.CreatedAt), r.ImageName, r.ProductType, verdict, fmt.Sprintf("%.0f%%", r.Confidence)}
	}
	fmt.Fprint(a.Out, display.RenderTable([]string{"ID", "WHEN", "IMAGE", "PRODUCT", "VERDICT", "CONFIDENCE"}, rows))
}

// printQuery runs query over the records as plain JSON values, printing one
// JSON document per result.
func (a *App) printQuery(recs []store.Record, query string) error {
	q, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}

	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	iter := q.Run(data)
	for {
		res, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := res.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, string(b))
	}
	return nil
}
