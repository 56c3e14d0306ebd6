package publisher

import (
	"testing"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/config"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

func TestNewPayload(t *testing.T) {
	sum := models.SnapshotSummary{
		ID:        "snap-1",
		Minute:    time.Date(2022, 5, 1, 11, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2022, 5, 1, 12, 0, 2, 0, time.UTC),
		Green:     4,
		Red:       2,
		Dots:      7,
	}
	p := NewPayload(sum, "data")

	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Payload
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != "snap-1" || decoded.Dir != "data" || !decoded.Minute.Equal(sum.Minute) {
		t.Errorf("unexpected payload %+v", decoded)
	}
	if len(decoded.Files) != 4 {
		t.Fatalf("got %d files", len(decoded.Files))
	}
	if decoded.Files[0].Name != "green_lines.csv" || decoded.Files[0].Rows != 4 {
		t.Errorf("green entry %+v", decoded.Files[0])
	}
	if decoded.Files[3].Name != "dots.csv" || decoded.Files[3].Rows != 7 {
		t.Errorf("dots entry %+v", decoded.Files[3])
	}
}

func TestTopic(t *testing.T) {
	if got := Topic("vista"); got != "vista/snapshot" {
		t.Errorf("got %s", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(config.MQTTConfig{}, "data"); err == nil {
		t.Error("expected error when disabled")
	}
	if _, err := New(config.MQTTConfig{Enabled: true}, "data"); err == nil {
		t.Error("expected error without broker")
	}
}

func TestNewUnreachableBroker(t *testing.T) {
	start := time.Now()
	// Nothing listens on port 1
	pub, err := New(config.MQTTConfig{Enabled: true, Broker: "127.0.0.1:1"}, "data")
	if err == nil {
		pub.Close()
		t.Fatal("expected connect error")
	}
	if elapsed := time.Since(start); elapsed > connectTimeout+2*time.Second {
		t.Errorf("New took %v to fail", elapsed)
	}
}
