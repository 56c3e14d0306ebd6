package cache

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

func TestKeys(t *testing.T) {
	if SummaryKey() != "purdueplot:latest" {
		t.Errorf("summary key = %s", SummaryKey())
	}
	if got := FileKey(models.YellowLines); got != "purdueplot:latest:yellow_lines.csv" {
		t.Errorf("file key = %s", got)
	}
}

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is never a Redis server
	if _, err := New(ctx, "127.0.0.1:1", 0, time.Minute); err == nil {
		t.Fatal("expected ping failure")
	}
}

func testSnapshot() (*models.Snapshot, models.SnapshotSummary) {
	loc := models.Location{RSU: 1, Bound: "WB", Movement: "T"}
	snap := &models.Snapshot{
		ID:     "snap-1",
		Minute: time.Date(2022, 5, 1, 11, 0, 0, 0, time.UTC),
		Rows: map[models.Category][]models.Row{
			models.GreenLines: {
				{Location: loc, Point: models.Point{X: 1651402810, Y: 10}},
				{Location: loc, Point: models.Point{X: 1651402890, Y: 46}},
			},
		},
	}
	return snap, snap.Summary(time.Date(2022, 5, 1, 12, 0, 1, 0, time.UTC))
}

func TestEncodeSnapshot(t *testing.T) {
	snap, sum := testSnapshot()

	values, err := encodeSnapshot(snap, sum)
	if err != nil {
		t.Fatalf("encodeSnapshot: %v", err)
	}
	if len(values) != len(models.Categories)+1 {
		t.Fatalf("got %d keys: %v", len(values), values)
	}

	decoded, err := decodeSummary(values[SummaryKey()])
	if err != nil {
		t.Fatalf("decodeSummary: %v", err)
	}
	if decoded.ID != "snap-1" || decoded.Green != 2 || decoded.Dots != 0 || !decoded.Minute.Equal(snap.Minute) {
		t.Errorf("unexpected summary %+v", decoded)
	}

	rows, err := snapshot.ReadRows(bytes.NewReader(values[FileKey(models.GreenLines)]))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Y != 46 {
		t.Errorf("unexpected green rows %v", rows)
	}
	if !strings.HasPrefix(string(values[FileKey(models.Dots)]), "RSU,Bound,Movement") {
		t.Error("empty category should still carry a header")
	}
}

func TestDecodeSummaryInvalid(t *testing.T) {
	if _, err := decodeSummary([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

// Set PURDUEPLOT_TEST_REDIS_ADDR to run against a live server
func TestStoreAndLatest(t *testing.T) {
	addr := os.Getenv("PURDUEPLOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PURDUEPLOT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := New(ctx, addr, 15, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	c.rdb.Del(ctx, SummaryKey())

	if _, ok, err := c.Latest(ctx); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	snap, sum := testSnapshot()
	if err := c.Store(ctx, snap, sum); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if got.ID != sum.ID || got.Green != 2 {
		t.Errorf("unexpected summary %+v", got)
	}
	if ttl := c.rdb.TTL(ctx, FileKey(models.RedLines)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("file key ttl = %v", ttl)
	}
}
