package cli

import (
	"defectlens/pkg/display"
	"defectlens/pkg/linknorm"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *App) newNormalizeCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "normalize <url>...",
		Short: "Show how links would be fetched, without fetching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			links := make([]linknorm.Link, len(args))
			for i, raw := range args {
				links[i] = linknorm.Normalize(raw, i+1)
			}

			if asJSON {
				b, err := json.MarshalIndent(links, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.Out, string(b))
				return nil
			}

			rows := make([][]string, len(links))
			for i, l := range links {
				fetch := l.FetchURL
				if !l.Rewritten() {
					fetch = "(unchanged)"
				}
				rows[i] = []string{strconv.Itoa(i + 1), string(l.Provider), l.SuggestedName, fetch}
			}
			fmt.Fprint(a.Out, display.RenderTable([]string{"#", "PROVIDER", "NAME", "FETCH URL"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print links as JSON")
	return cmd
}
