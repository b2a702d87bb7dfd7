package excel

// TabulatorConfig holds configuration for sheet decoding
type TabulatorConfig struct {
	// SheetName selects the worksheet; empty means the first sheet in the workbook.
	SheetName string `json:"sheet_name"`
	// MaxRows caps the number of data rows read; zero means unlimited.
	MaxRows int `json:"max_rows"`
	// KeepBlankRows keeps rows with no values as empty records.
	KeepBlankRows bool `json:"keep_blank_rows"`
}

// DefaultTabulatorConfig returns sensible defaults for sheet decoding
func DefaultTabulatorConfig() TabulatorConfig {
	return TabulatorConfig{}
}
