package cli

import (
	"defectlens/pkg/artifact"
	"defectlens/pkg/store"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const maxShownRef = 72

func (a *App) renderRecord(img *artifact.Image, rec *store.Record) string {
	t := a.Theme
	var sb strings.Builder

	size := humanize.Bytes(uint64(img.Size()))
	if w, h := img.Dimensions(); w > 0 {
		size = fmt.Sprintf("%dx%d, %s", w, h, size)
	}
	fmt.Fprintf(&sb, "%s %s %s\n", t.IconImage, t.Styled(t.Bold, img.Name), t.Styled(t.Dim, "("+size+")"))

	r := rec.Result
	verdict := t.Styled(t.Green, t.Check+" no defects found")
	if rec.DefectDetected {
		verdict = t.Styled(t.Red, fmt.Sprintf("%s %d defect(s) found", t.Cross, len(r.Defects)))
	}
	fmt.Fprintf(&sb, "  %-12s %s\n", "Verdict:", verdict)
	fmt.Fprintf(&sb, "  %-12s %s\n", "Product:", rec.ProductType)
	fmt.Fprintf(&sb, "  %-12s %.0f%%\n", "Confidence:", rec.Confidence)

	for i, d := range r.Defects {
		branch := t.BoxTree
		if i == len(r.Defects)-1 {
			branch = t.BoxLast
		}
		fmt.Fprintf(&sb, "  %s %s %s %s\n", branch, t.Styled(t.Yellow, d.Type), d.Severity,
			t.Styled(t.Dim, fmt.Sprintf("%.0f%% at (%.0f%%, %.0f%%)", d.Confidence, d.Location.X, d.Location.Y)))
	}
	if r.Analysis != "" {
		fmt.Fprintf(&sb, "  %-12s %s\n", "Analysis:", r.Analysis)
	}
	fmt.Fprintf(&sb, "  %s %s %s\n", t.IconDisk, rec.ID, t.Styled(t.Dim, shortRef(rec.ImageURL)))
	return sb.String()
}

// shortRef keeps inline data URIs from flooding the terminal.
func shortRef(ref string) string {
	if len(ref) <= maxShownRef {
		return ref
	}
	return ref[:maxShownRef-3] + "..."
}
