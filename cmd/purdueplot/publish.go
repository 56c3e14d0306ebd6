package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/publisher"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var (
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Announce archived snapshots over MQTT",
	Long:  `Reads archived snapshots that have not been announced yet and publishes them to the MQTT broker, oldest first.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all snapshots (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of snapshots to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	pub, err := publisher.New(cfg.MQTT, cfg.GetOutDir())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var data []models.SnapshotSummary
	if publishAll {
		data, err = db.ListAllSnapshots(publishLimit)
	} else {
		data, err = db.ListUnpublishedSnapshots(publishLimit)
	}
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	if len(data) == 0 {
		if publishAll {
			fmt.Println("No snapshots found")
		} else {
			fmt.Println("No unpublished snapshots found")
		}
		return nil
	}

	if publishLimit > 0 && len(data) == publishLimit {
		fmt.Printf("Limiting to %d snapshots (--limit flag)\n", publishLimit)
	}

	fmt.Printf("Publishing %d snapshots...\n", len(data))
	published := 0
	for i, s := range data {
		fmt.Printf("[%d/%d] Publishing %s (%s)... ", i+1, len(data), s.ID, s.Minute.UTC().Format("2006-01-02 15:04"))
		if err := pub.Publish(s); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		if err := db.MarkPublished(s.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d snapshots\n", published, len(data))
	return nil
}
