package excel

import (
	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
)

// ReaderConfig holds configuration for file decoding
type ReaderConfig struct {
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
	Encodings      []string               `json:"encodings"`       // CSV decoding cascade, tried in order
	MaxBytes       int64                  `json:"max_bytes"`       // 0 disables the limit
	FlattenJSON    bool                   `json:"flatten_json"`    // nested objects become dotted columns
	JSONDataField  string                 `json:"json_data_field"` // wrapper key holding a record array
}

// DefaultReaderConfig returns sensible defaults for file processing
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		CoercionConfig: coercer.DefaultCoercionConfig(),
		Encodings:      []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"},
		FlattenJSON:    true,
		JSONDataField:  "data",
	}
}
