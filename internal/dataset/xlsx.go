package dataset

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/reviewpower/internal/model"
)

var xlsxHeader = []string{
	"review_power_score", "name", "categories", "city", "state",
	"stars_avg", "review_count", "cluster", "sector",
}

// WriteXLSX writes records to a single-sheet workbook.
func WriteXLSX(w io.Writer, sheetName string, rows []model.BusinessRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "dataset: add sheet %q", sheetName)
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetFloat(r.ReviewPowerScore)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Categories)
		row.AddCell().SetString(r.City)
		row.AddCell().SetString(r.State)
		row.AddCell().SetFloat(r.StarsAvg)
		row.AddCell().SetInt(r.ReviewCount)
		row.AddCell().SetInt(r.Cluster)
		row.AddCell().SetString(string(r.Sector))
	}

	return eris.Wrap(f.Write(w), "dataset: write xlsx")
}

// ReadXLSXRows returns every row of the first sheet as strings.
func ReadXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: xlsx has no sheets")
	}
	var out [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		out = append(out, cells)
	}
	return out, nil
}
