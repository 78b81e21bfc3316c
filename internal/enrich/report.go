package enrich

import "github.com/sells-group/listings-cli/internal/model"

// ColumnFill is the fill count for one derived column over a run.
type ColumnFill struct {
	Column string
	Filled int
	Total  int
}

// Rate returns the fill fraction in [0, 1]; 0 for an empty run.
func (c ColumnFill) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Filled) / float64(c.Total)
}

// FillRates counts non-empty values per derived column, in column order.
func FillRates(listings []model.Listing, columns []string) []ColumnFill {
	fills := make([]ColumnFill, 0, len(columns))
	for _, col := range columns {
		fill := ColumnFill{Column: col, Total: len(listings)}
		for _, listing := range listings {
			if listing.Get(col) != "" {
				fill.Filled++
			}
		}
		fills = append(fills, fill)
	}
	return fills
}
