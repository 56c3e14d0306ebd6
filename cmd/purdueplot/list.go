package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/cache"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived snapshots",
	Long: `Displays the snapshots stored in the SQLite archive, newest first. When
Redis is enabled in config the snapshot currently cached there is shown too.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Number of snapshots to show (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	data, err := db.ListSnapshots(listLimit)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	if len(data) == 0 {
		fmt.Println("No snapshots found")
	} else {
		fmt.Printf("\nArchived snapshots:\n")
		fmt.Println("------------------------------------------------------------------------------")
		fmt.Printf("%-36s  %-16s  %5s %5s %5s %6s  %-4s  %s\n", "ID", "Minute (UTC)", "G", "Y", "R", "Dots", "Pub", "Written")
		fmt.Println("------------------------------------------------------------------------------")

		var dots int
		for _, s := range data {
			fmt.Printf("%-36s  %-16s  %5d %5d %5d %6d  %-4s  %s\n",
				s.ID, s.Minute.UTC().Format("2006-01-02 15:04"),
				s.Green, s.Yellow, s.Red, s.Dots,
				yesNo(s.Published), humanize.Time(s.CreatedAt))
			dots += s.Dots
		}

		fmt.Println("------------------------------------------------------------------------------")
		fmt.Printf("Total: %s dots (%d snapshots)\n", humanize.Comma(int64(dots)), len(data))
	}

	if cfg.Redis.Enabled {
		printCached(cfg.Redis.Addr, cfg.Redis.DB)
	}

	return nil
}

func printCached(addr string, dbNum int) {
	ctx := context.Background()
	rc, err := cache.New(ctx, addr, dbNum, 0)
	if err != nil {
		fmt.Printf("\nRedis: %v\n", err)
		return
	}
	defer rc.Close()

	sum, ok, err := rc.Latest(ctx)
	switch {
	case err != nil:
		fmt.Printf("\nRedis: %v\n", err)
	case !ok:
		fmt.Println("\nRedis: no cached snapshot")
	default:
		fmt.Printf("\nRedis latest: %s\n", describe(sum))
	}
}

func describe(s models.SnapshotSummary) string {
	return fmt.Sprintf("%s minute %s (G %d, Y %d, R %d, dots %d) written %s",
		s.ID, s.Minute.UTC().Format("2006-01-02 15:04"), s.Green, s.Yellow, s.Red, s.Dots, humanize.Time(s.CreatedAt))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
