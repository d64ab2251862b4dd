// Package export writes finished lead lists to CSV and XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a filename and returns the format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(s), ".")) {
	case "", "csv":
		if strings.EqualFold(s, "xlsx") {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", s)
	}
}

var columns = []string{
	"Business Name",
	"Address",
	"Phone",
	"Website",
	"Rating",
	"Email",
	"Email Status",
	"Draft Email",
	"Source",
	"Search Query",
}

func row(l model.Lead) []string {
	rating := ""
	if l.Rating > 0 {
		rating = fmt.Sprintf("%.1f", l.Rating)
	}
	return []string{
		l.Name,
		l.Address,
		l.Phone,
		l.Website,
		rating,
		l.Email,
		string(l.EmailStatus),
		l.DraftEmail,
		l.Source,
		l.FullQuery,
	}
}

// WriteCSV streams leads as CSV with a header row.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, l := range leads {
		if err := cw.Write(row(l)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes leads to a single-sheet workbook.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().SetString(col)
	}
	for _, l := range leads {
		r := sheet.AddRow()
		for _, val := range row(l) {
			r.AddCell().SetString(val)
		}
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// WriteFile writes leads to path, inferring the format from the extension.
func WriteFile(path string, leads []model.Lead) error {
	format, err := ParseFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	switch format {
	case FormatXLSX:
		err = WriteXLSX(f, leads)
	default:
		err = WriteCSV(f, leads)
	}
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
