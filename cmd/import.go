package main

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/model"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load outlets from a CSV or XLSX file",
	Long: `Loads outlet records from a spreadsheet. The first row is a header;
recognized columns are name, address, hours, latitude, longitude.
The hours column takes raw text like "Monday - Sunday, 8:00 AM - 10:00 PM".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		var rows [][]string
		var err error
		switch strings.ToLower(filepath.Ext(importFilePath)) {
		case ".csv":
			rows, err = readCSV(importFilePath)
		case ".xlsx":
			rows, err = readXLSX(importFilePath)
		default:
			return eris.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(importFilePath))
		}
		if err != nil {
			return err
		}

		outlets, skipped, err := rowsToOutlets(rows)
		if err != nil {
			return err
		}

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.InsertOutlets(ctx, outlets)
		if err != nil {
			return eris.Wrap(err, "import: insert outlets")
		}

		zap.L().Info("import complete",
			zap.String("file", importFilePath),
			zap.Int("inserted", n),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "import: read csv")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("import: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range wb.Sheets[0].Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// rowsToOutlets maps header-labeled rows to outlet records. Rows with
// a missing name or address, or unparseable hours, are skipped and
// counted rather than failing the whole file.
func rowsToOutlets(rows [][]string) ([]model.Outlet, int, error) {
	if len(rows) < 2 {
		return nil, 0, eris.New("import: file has no data rows")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, 0, eris.New("import: header is missing a name column")
	}
	if _, ok := col["address"]; !ok {
		return nil, 0, eris.New("import: header is missing an address column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var outlets []model.Outlet
	skipped := 0
	for _, row := range rows[1:] {
		o := model.Outlet{
			Name:    field(row, "name"),
			Address: field(row, "address"),
		}
		if o.Name == "" || o.Address == "" {
			skipped++
			continue
		}

		if raw := field(row, "hours"); raw != "" {
			hours, err := model.ParseHours(raw)
			if err != nil {
				zap.L().Warn("import: unparseable hours, skipping row",
					zap.String("name", o.Name),
					zap.String("hours", raw),
					zap.Error(err),
				)
				skipped++
				continue
			}
			o.WorkDayStart = hours.WorkDayStart
			o.WorkDayEnd = hours.WorkDayEnd
			o.StartTime = hours.StartTime
			o.EndTime = hours.EndTime
		}

		if lat, lon := field(row, "latitude"), field(row, "longitude"); lat != "" && lon != "" {
			latF, err := strconv.ParseFloat(lat, 64)
			if err != nil {
				return nil, 0, eris.Wrapf(err, "import: bad latitude %q for %s", lat, o.Name)
			}
			lonF, err := strconv.ParseFloat(lon, 64)
			if err != nil {
				return nil, 0, eris.Wrapf(err, "import: bad longitude %q for %s", lon, o.Name)
			}
			o.Latitude = &latF
			o.Longitude = &lonF
		}

		outlets = append(outlets, o)
	}
	return outlets, skipped, nil
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV or XLSX file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
