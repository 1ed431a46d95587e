package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kislikjeka/zapfeed/internal/module/feed"
	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
)

var (
	feedCmd = &cobra.Command{
		Use:     "feed",
		Short:   "Print the reconciled zap feed",
		Example: "zapctl feed --since 2024-05-01 --sort amount --page-size 20",
		Args:    cobra.NoArgs,
		RunE:    runFeed,
	}
	feedCmdSince    = "since"
	feedCmdSort     = "sort"
	feedCmdOrder    = "order"
	feedCmdPage     = "page"
	feedCmdPageSize = "page-size"
)

func init() {
	feedCmd.Flags().String(feedCmdSince, "", "only payments at or after this time (epoch seconds or ISO-8601)")
	feedCmd.Flags().String(feedCmdSort, "time", "sort by time, from, to or amount")
	feedCmd.Flags().String(feedCmdOrder, "desc", "asc or desc")
	feedCmd.Flags().Int(feedCmdPage, 1, "page number")
	feedCmd.Flags().Int(feedCmdPageSize, feed.DefaultPageSize, "rows per page")
}

func runFeed(ccmd *cobra.Command, args []string) error {
	q, err := feedQuery(ccmd)
	if err != nil {
		return err
	}

	a, err := setup(ccmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// one session key per process; nothing else competes with it
	result, err := a.Feed.Feed(commandContext(ccmd), "cli:"+uuid.NewString(), q)
	if err != nil {
		return err
	}

	out := ccmd.OutOrStdout()
	if wantJSON(ccmd) {
		return printJSON(out, result)
	}
	printFeed(out, result)
	return nil
}

func feedQuery(ccmd *cobra.Command) (feed.Query, error) {
	var q feed.Query
	var err error

	since, _ := ccmd.Flags().GetString(feedCmdSince)
	if q.Since, err = parseSinceFlag(since); err != nil {
		return q, err
	}
	sortField, _ := ccmd.Flags().GetString(feedCmdSort)
	if q.Sort, err = feed.ParseSortField(sortField); err != nil {
		return q, err
	}
	order, _ := ccmd.Flags().GetString(feedCmdOrder)
	if q.Order, err = feed.ParseSortOrder(order); err != nil {
		return q, err
	}
	q.Page, _ = ccmd.Flags().GetInt(feedCmdPage)
	q.PageSize, _ = ccmd.Flags().GetInt(feedCmdPageSize)
	return q, nil
}

func parseSinceFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts := payment.ParseTimeString(s)
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("invalid --since %q", s)
	}
	return ts.Time(), nil
}

func printFeed(w io.Writer, result *feed.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFROM\tTO\tSATS\tMEMO")
	for i := range result.Page.Items {
		rt := &result.Page.Items[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			formatTime(rt),
			partyName(rt.From.Label(), rt.FromHint),
			partyName(rt.To.Label(), rt.ToHint),
			feed.DisplayAmount(rt),
			rt.Transaction.Memo)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "page %d/%d, %d transfers\n", result.Page.Page, result.Page.TotalPages, result.Page.Total)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: skipped %s %s: %s\n", warn.Resource, warn.ID, warn.Message)
	}
}

func formatTime(rt *reconcile.ReconciledTransfer) string {
	if rt.TimeInvalid {
		return "?"
	}
	return rt.Transaction.Time.Time().Format("2006-01-02 15:04")
}

func partyName(label, hint string) string {
	switch {
	case label != "":
		return label
	case hint != "":
		return "(" + hint + ")"
	}
	return "-"
}
