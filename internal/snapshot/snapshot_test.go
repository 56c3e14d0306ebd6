package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var wbt = models.Location{RSU: 1, Bound: "WB", Movement: "T"}

func TestRecord(t *testing.T) {
	row := models.Row{Location: wbt, Point: models.Point{X: 1651406405.25, Y: 46}}
	got := Record(row)
	want := []string{
		"1", "WB", "T", "1651406405.25", "46",
		"2022-05-01 12:00:05.250000",
		"2022-05-01 04:00:05.250000",
		"2022-05-01 05:00:05.250000",
		"2022-05-01 04:00:05.250000 AM",
		"2022-05-01 05:00:05.250000 AM",
	}
	if len(got) != len(Header) {
		t.Fatalf("record has %d fields, header has %d", len(got), len(Header))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d (%s): got %q, want %q", i, Header[i], got[i], want[i])
		}
	}
}

func TestRecordAfternoonCrossesDate(t *testing.T) {
	// 03:30 UTC is the previous evening on the west coast
	x := float64(time.Date(2022, 5, 2, 3, 30, 0, 0, time.UTC).Unix())
	got := Record(models.Row{Location: wbt, Point: models.Point{X: x, Y: 12.5}})
	if got[4] != "12.5" {
		t.Errorf("y = %s", got[4])
	}
	if got[8] != "2022-05-01 07:30:00.000000 PM" {
		t.Errorf("12-hr PST = %s", got[8])
	}
	if got[9] != "2022-05-01 08:30:00.000000 PM" {
		t.Errorf("12-hr PDT = %s", got[9])
	}
}

func TestXTimeMicrosecondPrecision(t *testing.T) {
	got := XTime(1651406405.123456)
	want := time.Date(2022, 5, 1, 12, 0, 5, 123456000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func testSnapshot(rows int) *models.Snapshot {
	snap := &models.Snapshot{
		ID:     "test",
		Minute: time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC),
		Rows:   map[models.Category][]models.Row{},
	}
	for i := 0; i < rows; i++ {
		snap.Rows[models.GreenLines] = append(snap.Rows[models.GreenLines], models.Row{
			Location: wbt,
			Point:    models.Point{X: 1651406400 + float64(i*60), Y: float64(i)},
		})
	}
	return snap
}

func TestWriterReplacesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	w := NewWriter(dir)

	if err := w.Write(testSnapshot(3)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	rows, err := Read(dir, models.GreenLines)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows after first write", len(rows))
	}

	// Second write replaces instead of appending
	if err := w.Write(testSnapshot(1)); err != nil {
		t.Fatalf("second write: %v", err)
	}
	rows, err = Read(dir, models.GreenLines)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Location != wbt || rows[0].X != 1651406400 {
		t.Fatalf("unexpected rows after replace: %v", rows)
	}

	// Empty categories still get a header
	for _, c := range []models.Category{models.YellowLines, models.RedLines, models.Dots} {
		data, err := os.ReadFile(w.Path(c))
		if err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(string(data)) != strings.Join(Header, ",") {
			t.Errorf("%s: got %q", c.FileName(), data)
		}
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(models.Categories) {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestReadRowsErrors(t *testing.T) {
	cases := []string{
		"foo,bar\n1,2\n",
		strings.Join(Header, ",") + "\nx,WB,T,1,2\n",
		strings.Join(Header, ",") + "\n1,WB,T,abc,2\n",
		strings.Join(Header, ",") + "\n1,WB\n",
	}
	for _, in := range cases {
		if _, err := ReadRows(strings.NewReader(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}

	rows, err := ReadRows(strings.NewReader(""))
	if err != nil || rows != nil {
		t.Errorf("empty input: %v %v", rows, err)
	}
}

func TestRenderMatchesFile(t *testing.T) {
	dir := t.TempDir()
	snap := testSnapshot(2)
	if err := NewWriter(dir).Write(snap); err != nil {
		t.Fatal(err)
	}
	onDisk, err := os.ReadFile(filepath.Join(dir, "green_lines.csv"))
	if err != nil {
		t.Fatal(err)
	}
	rendered, err := Render(snap.Rows[models.GreenLines])
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != string(rendered) {
		t.Errorf("render mismatch:\n%s\nvs\n%s", onDisk, rendered)
	}
}
