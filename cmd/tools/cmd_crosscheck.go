package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"camtrap/internal/crosscheck"
	"camtrap/internal/db"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	checkAnimal  string
	checkStart   string
	checkEnd     string
	checkWorkers int
	checkJSON    bool
	checkAll     bool
)

var crosscheckCmd = &cobra.Command{
	Use:   "crosscheck",
	Short: "Compare map point totals with their detail records",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		ctx := cmd.Context()
		store, _, err := openStore(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := crosscheck.Run(ctx, store, crosscheck.Options{
			Filter:  db.Filter{Animal: checkAnimal, StartDate: checkStart, EndDate: checkEnd},
			Workers: checkWorkers,
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if checkJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCOORD\tMAP\tDETAIL\tRECORDS\tOK")
		for _, p := range report.Points {
			if p.Consistent && !checkAll {
				continue
			}
			fmt.Fprintf(tw, "%s\t%.4f,%.4f\t%d\t%d\t%d\t%t\n",
				p.Name, p.Coord[0], p.Coord[1], p.MapValue, p.DetailTotal, p.Records, p.Consistent)
		}
		tw.Flush()

		fmt.Fprintf(out, "\nChecked %d points: %d consistent, %d mismatched (map total %s, detail total %s)\n",
			report.Checked, report.Consistent, report.Mismatched,
			humanize.Comma(report.MapTotal), humanize.Comma(report.DetailTotal))
		return nil
	},
}

func init() {
	crosscheckCmd.Flags().StringVar(&checkAnimal, "animal", "", "Only this animal")
	crosscheckCmd.Flags().StringVar(&checkStart, "start", "", "Start date, YYYY-MM-DD")
	crosscheckCmd.Flags().StringVar(&checkEnd, "end", "", "End date, YYYY-MM-DD")
	crosscheckCmd.Flags().IntVar(&checkWorkers, "workers", 4, "Concurrent detail queries")
	crosscheckCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the full report as JSON")
	crosscheckCmd.Flags().BoolVar(&checkAll, "all", false, "List consistent points too")
}
