package cli

import (
	"fmt"
	"io"

	"github.com/BartekS5/cleanetl/pkg/models"
	"github.com/BartekS5/cleanetl/pkg/utils"
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderPreview prints up to limit rows of ds followed by the total row count.
func renderPreview(w io.Writer, ds *models.Dataset, limit int) {
	if ds.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, ds.Width())
	for i, name := range ds.ColumnNames() {
		header[i] = fmt.Sprintf("%s (%s)", name, ds.Column(i).Kind)
	}
	t.AppendHeader(header)

	n := min(limit, ds.Len())
	for r := 0; r < n; r++ {
		row := make(table.Row, ds.Width())
		for c := 0; c < ds.Width(); c++ {
			row[c] = utils.FormatValue(ds.Value(r, c))
		}
		t.AppendRow(row)
	}
	t.Render()

	if n < ds.Len() {
		_, _ = fmt.Fprintf(w, "... showing %d of %d rows\n", n, ds.Len())
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", ds.Len())
}
