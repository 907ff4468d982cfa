package recommend

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vietddude/curator/internal/core/domain"
)

// RenderTable writes recommendations as a terminal table.
func RenderTable(w io.Writer, search string, recs []domain.Recommendation) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 48},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	t.AppendHeader(table.Row{"#", "Title", "Match", "Mean Score", "NSFW", "Link"})
	for i, r := range recs {
		t.AppendRow(table.Row{
			i + 1,
			r.Title,
			fmt.Sprintf("%d%%", r.MatchPct),
			FormatMean(r.Mean),
			ContentLabel(r),
			r.Link,
		})
	}
	t.AppendFooter(table.Row{"Total", len(recs), "", "", "", fmt.Sprintf("Search: %s", search)})
	t.Render()
}

// Render writes the table for a successful result and the user-facing
// message otherwise.
func Render(w io.Writer, res Result) {
	if res.OK() && len(res.Recommendations) > 0 {
		RenderTable(w, res.Search, res.Recommendations)
		return
	}
	fmt.Fprintln(w, res.Message())
}

// ContentLabel renders the content flag.
func ContentLabel(r domain.Recommendation) string {
	if r.IsNSFW() {
		return "NSFW"
	}
	return "SFW"
}

// FormatMean rounds a mean score to two decimals without trailing zeros.
func FormatMean(mean float64) string {
	return strconv.FormatFloat(math.Round(mean*100)/100, 'f', -1, 64)
}
