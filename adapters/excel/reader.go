// Package excel reads marketing exports (delimited text, spreadsheets and JSON records)
// from raw bytes into typed tables.
package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// DataReader handles reading CSV, Excel and JSON payloads
type DataReader struct {
	config  ReaderConfig
	coercer *coercer.TypeCoercer
}

// Decoded is a successfully read file
type Decoded struct {
	Table    *table.Table
	FileType FileType
	Encoding string // CSV only
	Sheet    string // spreadsheets only
}

// NewDataReader creates a new data reader
func NewDataReader(config ReaderConfig) *DataReader {
	if len(config.Encodings) == 0 {
		config.Encodings = DefaultReaderConfig().Encodings
	}
	return &DataReader{config: config, coercer: coercer.NewTypeCoercer(config.CoercionConfig)}
}

// DetectFileType maps a filename extension to a supported file type
func DetectFileType(filename string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx":
		return FileTypeXLSX, nil
	case ".xls":
		return FileTypeXLS, nil
	case ".json":
		return FileTypeJSON, nil
	}
	return "", fmt.Errorf("%w: %q (supported: .csv, .xlsx, .xls, .json)", core.ErrUnsupportedFormat, ext)
}

// Read decodes data according to the extension of filename
func (r *DataReader) Read(data []byte, filename string) (*Decoded, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}
	if r.config.MaxBytes > 0 && int64(len(data)) > r.config.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", core.ErrInvalidInput, filename, len(data), r.config.MaxBytes)
	}

	log.Printf("[DataReader] Starting to read %s file: %s (%d bytes)", fileType, filename, len(data))
	start := time.Now()

	var out *Decoded
	switch fileType {
	case FileTypeCSV:
		out, err = r.readCSV(data)
	case FileTypeXLSX, FileTypeXLS:
		out, err = r.readSpreadsheet(data)
	case FileTypeJSON:
		out, err = r.readJSON(data)
	}
	if err != nil {
		return nil, err
	}
	out.FileType = fileType

	log.Printf("[DataReader] %s file processed in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(fileType)), float64(time.Since(start).Nanoseconds())/1e6,
		out.Table.NumColumns(), out.Table.NumRows())
	return out, nil
}

// readCSV decodes text with the encoding cascade and parses it as comma-separated values
func (r *DataReader) readCSV(data []byte) (*Decoded, error) {
	text, enc, err := decodeText(data, r.config.Encodings)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV: %v", core.ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV file has no header row", core.ErrMalformedInput)
	}

	t := r.processRows(RawData{Headers: rows[0], Rows: rows[1:]})
	return &Decoded{Table: t, Encoding: enc}, nil
}

// readSpreadsheet reads the first worksheet of a workbook
func (r *DataReader) readSpreadsheet(data []byte) (*Decoded, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", core.ErrUndecodable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrMalformedInput)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %v", core.ErrMalformedInput, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", core.ErrMalformedInput, sheet)
	}

	t := r.processRows(RawData{Headers: rows[0], Rows: rows[1:]})
	return &Decoded{Table: t, Sheet: sheet}, nil
}

// processRows turns string rows into a typed table. Headers are trimmed and made unique,
// rows are padded or truncated to the header width, and each column is typed on its own.
func (r *DataReader) processRows(raw RawData) *table.Table {
	headers := uniqueHeaders(raw.Headers)

	rows := make([][]string, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	t := table.New(len(rows))
	cells := make([]string, len(rows))
	for j, name := range headers {
		for i, row := range rows {
			cells[i] = ""
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}
		// headers are unique, AddColumn cannot fail
		_ = t.AddColumn(name, r.coercer.CoerceColumn(cells))
	}
	return t
}

// uniqueHeaders trims header cells, names empty ones by position and suffixes repeats
// with .1, .2 and so on.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for taken[name] {
			seen[h]++
			name = h + "." + strconv.Itoa(seen[h])
		}
		taken[name] = true
		headers[i] = name
	}
	return headers
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
