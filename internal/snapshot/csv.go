package snapshot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

// Header is the first row of every output file
var Header = []string{"RSU", "Bound", "Movement", "x", "y", "x as UTC Time",
	"x as PST Time", "x as PDT Time", "x as 12-Hr PST Time",
	"x as 12-Hr PDT Time"}

const (
	TimeLayout     = "2006-01-02 15:04:05.000000"
	TimeLayout12Hr = "2006-01-02 03:04:05.000000 PM"
)

// PST and PDT are fixed offsets; both columns are written year round
var (
	PST = time.FixedZone("PST", -8*60*60)
	PDT = time.FixedZone("PDT", -7*60*60)
)

// XTime converts an x value (unix seconds) to a UTC time at microsecond precision
func XTime(x float64) time.Time {
	return time.UnixMicro(int64(math.Round(x * 1e6))).UTC()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Record renders a row as CSV fields
func Record(row models.Row) []string {
	utc := XTime(row.X)
	pst := utc.In(PST)
	pdt := utc.In(PDT)
	return []string{
		strconv.Itoa(row.RSU),
		row.Bound,
		row.Movement,
		formatFloat(row.X),
		formatFloat(row.Y),
		utc.Format(TimeLayout),
		pst.Format(TimeLayout),
		pdt.Format(TimeLayout),
		pst.Format(TimeLayout12Hr),
		pdt.Format(TimeLayout12Hr),
	}
}

// WriteRows writes the header followed by rows
func WriteRows(w io.Writer, rows []models.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(Record(row)); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Render returns the full file contents for rows
func Render(rows []models.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRows(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadRows parses a file written by WriteRows. Only the first five columns
// are read; the time renderings are derived from x.
func ReadRows(r io.Reader) ([]models.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < 5 || strings.TrimSpace(header[0]) != Header[0] {
		return nil, fmt.Errorf("unexpected header: %v", header)
	}

	var rows []models.Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("line %d: expected at least 5 columns, got %d", line, len(record))
		}

		rsu, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing RSU: %w", line, err)
		}
		x, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing x: %w", line, err)
		}
		y, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing y: %w", line, err)
		}

		rows = append(rows, models.Row{
			Location: models.Location{RSU: rsu, Bound: record[1], Movement: record[2]},
			Point:    models.Point{X: x, Y: y},
		})
	}

	return rows, nil
}

// Read parses one output file from dir
func Read(dir string, c models.Category) ([]models.Row, error) {
	f, err := os.Open(filepath.Join(dir, c.FileName()))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.FileName(), err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", c.FileName(), err)
	}
	return rows, nil
}
