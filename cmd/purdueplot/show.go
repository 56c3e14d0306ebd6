package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/snapshot"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var (
	showOutDir   string
	showRSU      int
	showBound    string
	showMovement string
	showCategory string
	showSnapshot string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current diagram series from the CSV files",
	Long: `Reads green_lines.csv, yellow_lines.csv, red_lines.csv and dots.csv back
and prints the points for one approach. Filters default to RSU 1, bound WB,
movement T.

With --snapshot the rows come from the SQLite archive instead of the files.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showOutDir, "out-dir", "", "directory holding the CSV files (overrides config)")
	showCmd.Flags().IntVar(&showRSU, "rsu", 1, "RSU number")
	showCmd.Flags().StringVar(&showBound, "bound", "WB", "approach bound (NB, SB, EB, WB)")
	showCmd.Flags().StringVar(&showMovement, "movement", "T", "movement (T, L, R)")
	showCmd.Flags().StringVar(&showCategory, "category", "", "only one of green, yellow, red, dots")
	showCmd.Flags().StringVar(&showSnapshot, "snapshot", "", "archived snapshot id to show instead of the CSV files")
	rootCmd.AddCommand(showCmd)
}

// filterRows keeps rows matching loc
func filterRows(rows []models.Row, loc models.Location) []models.Row {
	var out []models.Row
	for _, r := range rows {
		if r.Location == loc {
			out = append(out, r)
		}
	}
	return out
}

func runShow(cmd *cobra.Command, args []string) error {
	dir := showOutDir
	if dir == "" && showSnapshot == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dir = cfg.GetOutDir()
	}

	categories := models.Categories
	if showCategory != "" {
		c, err := models.ParseCategory(showCategory)
		if err != nil {
			return err
		}
		categories = []models.Category{c}
	}

	loc := models.Location{
		RSU:      showRSU,
		Bound:    strings.ToUpper(showBound),
		Movement: strings.ToUpper(showMovement),
	}
	if showSnapshot != "" {
		return showArchived(showSnapshot, categories, loc)
	}

	writer := snapshot.NewWriter(dir)
	for _, c := range categories {
		path := writer.Path(c)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Printf("\n%s: not found\n", c.FileName())
			continue
		}

		rows, err := snapshot.Read(dir, c)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s for %s (%s, written %s):\n", c.FileName(), loc, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
		printRows(filterRows(rows, loc))
	}

	return nil
}

func showArchived(id string, categories []models.Category, loc models.Location) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	for _, c := range categories {
		rows, err := db.GetRows(id, c)
		if err != nil {
			return fmt.Errorf("reading %s of %s: %w", c, id, err)
		}
		fmt.Printf("\n%s of snapshot %s for %s:\n", c, id, loc)
		printRows(filterRows(rows, loc))
	}
	return nil
}

func printRows(rows []models.Row) {
	fmt.Println("----------------------------------------------------------")
	fmt.Printf("%-28s  %18s  %10s\n", "UTC", "x", "y")
	fmt.Println("----------------------------------------------------------")
	for _, r := range rows {
		fmt.Printf("%-28s  %18.6f  %10.3f\n", snapshot.XTime(r.X).Format(snapshot.TimeLayout), r.X, r.Y)
	}
	fmt.Println("----------------------------------------------------------")
	fmt.Printf("%s points\n", humanize.Comma(int64(len(rows))))
}
