package excel

// FileType identifies the format a file was read as
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
	FileTypeJSON FileType = "json"
)

// RawData is a header row plus string cells, the shape shared by delimited text and spreadsheets
type RawData struct {
	Headers []string
	Rows    [][]string
}
