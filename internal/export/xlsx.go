// Package export writes filing query results to spreadsheets.
package export

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/filings"
	"github.com/sells-group/warehouse-rag/internal/model"
)

// Querier runs a named filing query.
type Querier interface {
	RunQuery(ctx context.Context, name filings.QueryName) (*model.ResultSet, error)
}

// WriteWorkbook runs every filing query and saves one sheet per query to
// path. The first row of each sheet holds the column names.
func WriteWorkbook(ctx context.Context, q Querier, path string) error {
	f := xlsx.NewFile()

	for _, name := range filings.QueryNames() {
		rs, err := q.RunQuery(ctx, name)
		if err != nil {
			return eris.Wrapf(err, "export: query %s", name)
		}
		if err := addSheet(f, string(name), rs); err != nil {
			return err
		}
		zap.L().Debug("export: wrote sheet", zap.String("sheet", string(name)), zap.Int("rows", len(rs.Rows)))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	zap.L().Info("export: saved workbook", zap.String("path", path))
	return nil
}

func addSheet(f *xlsx.File, name string, rs *model.ResultSet) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, col := range rs.Columns {
		header.AddCell().SetString(col)
	}

	for _, values := range rs.Rows {
		row := sheet.AddRow()
		for _, v := range values {
			setCell(row.AddCell(), v)
		}
	}
	return nil
}

func setCell(c *xlsx.Cell, v any) {
	switch t := v.(type) {
	case nil:
		c.SetString("")
	case string:
		c.SetString(t)
	case bool:
		c.SetBool(t)
	case int:
		c.SetInt(t)
	case int32:
		c.SetInt64(int64(t))
	case int64:
		c.SetInt64(t)
	case float32:
		c.SetFloat(float64(t))
	case float64:
		c.SetFloat(t)
	default:
		c.SetString(fmt.Sprint(t))
	}
}
