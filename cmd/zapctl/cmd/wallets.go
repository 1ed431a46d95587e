package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

var (
	walletsCmd = &cobra.Command{
		Use:   "wallets <user-id>",
		Short: "List a user's live wallets with roles and balances",
		Args:  cobra.ExactArgs(1),
		RunE:  runWallets,
	}

	logCmd = &cobra.Command{
		Use:     "log <aad-object-id> <allowance|private>",
		Short:   "Print the attributed history of one role wallet",
		Example: "zapctl log 5f0c...e1 private --since 1714521600",
		Args:    cobra.ExactArgs(2),
		RunE:    runLog,
	}
)

func init() {
	logCmd.Flags().String(feedCmdSince, "", "only payments at or after this time (epoch seconds or ISO-8601)")
}

func runWallets(ccmd *cobra.Command, args []string) error {
	a, err := setup(ccmd)
	if err != nil {
		return err
	}
	defer a.Close()

	wallets, err := a.Directory.ListWallets(commandContext(ccmd), args[0])
	if err != nil {
		return err
	}

	out := ccmd.OutOrStdout()
	if wantJSON(ccmd) {
		type row struct {
			ID          string   `json:"id"`
			Name        string   `json:"name"`
			Roles       []string `json:"roles"`
			BalanceSats string   `json:"balance_sats"`
		}
		rows := make([]row, 0, len(wallets))
		for _, w := range wallets {
			rows = append(rows, row{w.ID, w.Name, w.Roles().Names(), money.FormatSats(w.BalanceMsat)})
		}
		return printJSON(out, rows)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLES\tSATS")
	for _, w := range wallets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", w.ID, w.Name, strings.Join(w.Roles().Names(), ","), money.FormatSats(w.BalanceMsat))
	}
	return tw.Flush()
}

func runLog(ccmd *cobra.Command, args []string) error {
	role, ok := wallet.ParseRole(args[1])
	if !ok {
		return fmt.Errorf("unknown wallet role %q", args[1])
	}
	sinceFlag, _ := ccmd.Flags().GetString(feedCmdSince)
	since, err := parseSinceFlag(sinceFlag)
	if err != nil {
		return err
	}

	a, err := setup(ccmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Feed.WalletLog(commandContext(ccmd), args[0], role, since)
	if err != nil {
		return err
	}

	out := ccmd.OutOrStdout()
	if wantJSON(ccmd) {
		return printJSON(out, result)
	}

	fmt.Fprintf(out, "%s (%s), balance %s sats\n", result.Wallet.Name, result.Wallet.ID, money.FormatSats(result.Wallet.BalanceMsat))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDIR\tCOUNTERPARTY\tSATS\tMEMO")
	for _, e := range result.Entries {
		dir, counterparty := "out", e.To
		if e.IsIncoming {
			dir, counterparty = "in", e.From
		}
		when := "?"
		if !e.TimeInvalid {
			when = e.Transaction.Time.Time().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			when, dir,
			partyName(counterparty.Label(), e.CounterpartyHint),
			money.DisplaySats(e.Transaction.Amount),
			e.Transaction.Memo)
	}
	return tw.Flush()
}
