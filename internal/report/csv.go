package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// WriteCSV writes a header row and every record; nulls are empty cells
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	names := t.ColumnNames()
	if err := cw.Write(names); err != nil {
		return err
	}
	record := make([]string, len(names))
	for i := 0; i < t.NumRows(); i++ {
		for j, n := range names {
			record[j] = t.Value(i, n).String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the table to a timestamped CSV file in the report directory
func (g *Generator) ExportCSV(t *table.Table, name string) (*Artifact, error) {
	if t == nil {
		return nil, errNilTable
	}
	filename := g.filename(name, "marketing_data", "csv")
	path := filepath.Join(g.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv export: %w", err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv export: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return g.record(Artifact{Type: TypeCSV, Filename: filename, Path: path, Rows: t.NumRows()}), nil
}
