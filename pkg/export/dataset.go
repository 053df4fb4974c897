package export

import "fmt"

// Dataset is tabular export content. Highlight, when set, flags rows to emphasise
// and must be as long as Rows.
type Dataset struct {
	Title     string
	Headers   []string
	Rows      [][]string
	Highlight []bool
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	if d.Highlight != nil && len(d.Highlight) != len(d.Rows) {
		return fmt.Errorf("highlight has %d flags for %d rows", len(d.Highlight), len(d.Rows))
	}
	return nil
}

func (d Dataset) highlighted(i int) bool {
	return d.Highlight != nil && d.Highlight[i]
}
