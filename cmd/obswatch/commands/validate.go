package commands

import (
	"fmt"
	"os"
	"sort"

	"obswatch/lib/scrapers/obs"
	"obswatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Dry run: logs in, scrapes and prints the grade table without notifying or committing.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		service, database, err := cfg.service()
		if err != nil {
			serviceutil.Fatal("failed to initialize service", err)
		}
		defer database.Close()

		current, fresh, err := service.Inspect(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to inspect portal", err)
		}

		freshKeys := map[obs.Key]bool{}
		for _, record := range fresh {
			freshKeys[record.Key()] = true
		}

		records := make([]obs.Record, 0, len(current))
		for _, record := range current {
			records = append(records, record)
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].Course != records[j].Course {
				return records[i].Course < records[j].Course
			}
			return records[i].Exam < records[j].Exam
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Name", "Exam", "Score", "New"})
		for _, record := range records {
			score := record.Score
			if score == "" {
				score = "-"
			}
			mark := ""
			if freshKeys[record.Key()] {
				mark = "✓"
			}
			t.AppendRow(table.Row{record.Course, record.Name, record.Exam, score, mark})
		}
		t.Render()

		fmt.Printf("\n%d records scraped, %d would be notified\n", len(records), len(fresh))
	},
}
