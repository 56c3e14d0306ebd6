package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot(id string, minute time.Time) *models.Snapshot {
	loc := models.Location{RSU: 1, Bound: "WB", Movement: "T"}
	return &models.Snapshot{
		ID:     id,
		Minute: minute,
		Rows: map[models.Category][]models.Row{
			models.GreenLines: {
				{Location: loc, Point: models.Point{X: 1651406410, Y: 10}},
				{Location: loc, Point: models.Point{X: 1651406490, Y: 46}},
			},
			models.Dots: {
				{Location: loc, Point: models.Point{X: 1651406445.5, Y: 1.5}},
			},
		},
	}
}

func TestInsertAndList(t *testing.T) {
	db := openTestDB(t)
	minute := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := db.InsertSnapshot(testSnapshot("a", minute), minute.Add(time.Hour)); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	if err := db.InsertSnapshot(testSnapshot("b", minute.Add(time.Minute)), minute.Add(time.Hour+time.Minute)); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	// Duplicate ids are ignored
	if err := db.InsertSnapshot(testSnapshot("a", minute), minute.Add(time.Hour)); err != nil {
		t.Fatalf("duplicate InsertSnapshot: %v", err)
	}

	list, err := db.ListSnapshots(0)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(list))
	}
	if list[0].ID != "b" {
		t.Errorf("newest first: got %s", list[0].ID)
	}
	if list[1].Green != 2 || list[1].Dots != 1 || list[1].Red != 0 {
		t.Errorf("unexpected counts %+v", list[1])
	}
	if !list[1].Minute.Equal(minute) {
		t.Errorf("minute = %v", list[1].Minute)
	}

	limited, err := db.ListSnapshots(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}

	rows, err := db.GetRows("a", models.GreenLines)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1].Y != 46 || rows[0].Bound != "WB" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestPublishedFlag(t *testing.T) {
	db := openTestDB(t)
	minute := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := db.InsertSnapshot(testSnapshot(id, minute.Add(time.Duration(i)*time.Minute)), minute.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.MarkPublished("b"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}

	pending, err := db.ListUnpublishedSnapshots(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "c" {
		t.Errorf("unexpected pending %v", pending)
	}

	all, err := db.ListAllSnapshots(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || !all[1].Published {
		t.Errorf("unexpected all %v", all)
	}
}
