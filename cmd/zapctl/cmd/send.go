package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/zapfeed/internal/module/transfer"
)

var (
	sendCmd = &cobra.Command{
		Use:     "send",
		Short:   "Zap sats from one user's allowance wallet to another user's private wallet",
		Example: "zapctl send --from <user-id> --to <user-id> --amount 500 --memo 'great demo'",
		Args:    cobra.NoArgs,
		RunE:    runSend,
	}
	sendCmdFrom   = "from"
	sendCmdTo     = "to"
	sendCmdAmount = "amount"
	sendCmdMemo   = "memo"
)

func init() {
	sendCmd.Flags().String(sendCmdFrom, "", "sender user id")
	sendCmd.Flags().String(sendCmdTo, "", "recipient user id")
	sendCmd.Flags().Int64(sendCmdAmount, 0, "amount in sats")
	sendCmd.Flags().String(sendCmdMemo, "", "memo")
	_ = sendCmd.MarkFlagRequired(sendCmdFrom)
	_ = sendCmd.MarkFlagRequired(sendCmdTo)
	_ = sendCmd.MarkFlagRequired(sendCmdAmount)
}

func runSend(ccmd *cobra.Command, args []string) error {
	req := transfer.Request{}
	req.FromUserID, _ = ccmd.Flags().GetString(sendCmdFrom)
	req.ToUserID, _ = ccmd.Flags().GetString(sendCmdTo)
	req.AmountSats, _ = ccmd.Flags().GetInt64(sendCmdAmount)
	req.Memo, _ = ccmd.Flags().GetString(sendCmdMemo)

	a, err := setup(ccmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Transfers.Send(commandContext(ccmd), req)
	if err != nil {
		var te *transfer.TransferError
		if errors.As(err, &te) && te.PaymentRequest != "" {
			fmt.Fprintln(ccmd.ErrOrStderr(), "unpaid invoice left on recipient wallet:", te.PaymentRequest)
		}
		return err
	}

	out := ccmd.OutOrStdout()
	if wantJSON(ccmd) {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "sent %d sats from %s to %s (payment hash %s)\n",
		result.AmountSats, result.From.Label(), result.To.Label(), result.PaymentHash)
	return nil
}
