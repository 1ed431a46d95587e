package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	allowanceCmd = &cobra.Command{
		Use:   "allowance",
		Short: "Weekly allowance maintenance",
	}

	allowanceRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Clear every allowance wallet into the host wallet and top it up once",
		Long: `Requires HOST_USER_ID, HOST_WALLET_ID and ALLOWANCE_AMOUNT_SATS.
ALLOWANCE_ENABLED only controls the server's schedule; this command always runs.`,
		Args: cobra.NoArgs,
		RunE: runAllowance,
	}
)

func init() {
	allowanceCmd.AddCommand(allowanceRunCmd)
}

func runAllowance(ccmd *cobra.Command, args []string) error {
	a, err := setup(ccmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Allowance.RunOnce(commandContext(ccmd))
	if err != nil {
		return err
	}

	out := ccmd.OutOrStdout()
	if wantJSON(ccmd) {
		if err := printJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%d allowance wallets: %d cleared (%d sats), %d topped up\n",
			report.Wallets, report.Cleared, report.ClearedSats, report.ToppedUp)
		for _, f := range report.Failures {
			fmt.Fprintln(out, "failed:", f.Error())
		}
	}
	return report.Err()
}
