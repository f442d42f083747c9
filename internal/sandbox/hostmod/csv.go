package hostmod

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type csvModule struct{}

func (csvModule) Name() string { return "csv" }

func (csvModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	// parse(text) returns an array of row arrays. Rows may have uneven
	// field counts; quoting follows RFC 4180.
	_ = obj.Set("parse", func(call goja.FunctionCall) goja.Value {
		r := csv.NewReader(strings.NewReader(call.Argument(0).String()))
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("parsing csv: %v", err)))
		}
		return rt.ToValue(rows)
	})

	// format(rows) renders an array of row arrays to CSV text.
	_ = obj.Set("format", func(call goja.FunctionCall) goja.Value {
		var records [][]string
		for _, row := range valueSlice(rt, call.Argument(0)) {
			cells := valueSlice(rt, row)
			record := make([]string, len(cells))
			for i, cell := range cells {
				record[i] = cell.String()
			}
			records = append(records, record)
		}
		var b strings.Builder
		w := csv.NewWriter(&b)
		if err := w.WriteAll(records); err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("formatting csv: %v", err)))
		}
		return rt.ToValue(b.String())
	})

	return obj, nil
}
