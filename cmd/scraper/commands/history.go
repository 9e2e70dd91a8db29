package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shanehull/wsbscraper/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs recorded in the run history",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hm, err := history.NewManager(cfg.History.Dir, newLogger(cfg))
	if err != nil {
		return err
	}

	runs := hm.Runs()
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded in %s\n", hm.HistoryFilePath())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN AT\tSUBREDDIT\tKEY\tPOSTS\tSCORED\tFAILED\tTOP TICKERS")
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		top := strings.Join(r.TopTickers, ",")
		if len(r.FailedSinks) > 0 {
			top += "  (sink errors: " + strings.Join(r.FailedSinks, ",") + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
			r.RunAt.Format("2006-01-02 15:04"), r.Subreddit, r.Granularity,
			r.PostsInWindow, r.PostsFetched, r.Scored, r.ScoreFailures, top)
	}
	return w.Flush()
}
