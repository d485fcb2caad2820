package export

import (
	"strconv"

	"github.com/formintake/formintake/internal/document"
)

// Header is the exact header row of every exported table.
var Header = []string{"Page Number", "Field Name", "Field Value"}

// Serialize flattens records into a table: the header row followed by one
// row per record in the order received. No sorting, no I/O. Serializing the
// same records twice yields identical tables.
func Serialize(records []document.Record) document.Table {
	table := document.Table{
		Header: append([]string(nil), Header...),
		Rows:   make([][]string, 0, len(records)),
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(r.PageNumber),
			r.FieldName,
			r.FieldValue,
		})
	}
	return table
}
