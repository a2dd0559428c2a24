package data

// Dataset is a raw tabular dataset as loaded from CSV: a header and
// string-valued rows. Typing and filtering happen in internal/features.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Column returns the index of the named column, or -1.
func (d *Dataset) Column(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
