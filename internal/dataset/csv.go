package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listings-cli/internal/model"
)

// LoadCSV reads a CSV listings file. The first row is the header; short rows
// leave their trailing columns empty.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Errorf("dataset: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", path)
		}
		rows = append(rows, record)
	}

	return fromRows(header, rows), nil
}

// WriteCSV writes listings under the given header. Values for columns a row
// does not have are written empty. The file is written to a temp sibling and
// renamed so a crash mid-write never leaves a truncated output behind.
func WriteCSV(path string, columns []string, listings []model.Listing) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".listings-*.csv")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp file for %s", path)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(columns); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "dataset: write header of %s", path)
	}

	row := make([]string, len(columns))
	for _, listing := range listings {
		for i, col := range columns {
			row[i] = listing.Values[col]
		}
		if err := writer.Write(row); err != nil {
			_ = tmp.Close()
			return eris.Wrapf(err, "dataset: write row %d of %s", listing.Index, path)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "dataset: flush %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrapf(err, "dataset: rename into place %s", path)
	}
	return nil
}
