package cmd

import (
	"context"
	"fmt"

	"ethpool/domain/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var payoutState string

var payoutsCmd = &cobra.Command{
	Use:   "payouts",
	Short: "Lists recorded withdrawal payouts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		payouts, err := payoutInteractor.List(context.Background(), payoutState)
		if err != nil {
			failed("listing payouts", err)
		}

		fmt.Printf("------------- PAYOUTS -----------------\n")
		for i, payout := range payouts {
			fmt.Printf("#%03d - %v [ %v -> %v, %v ]\n",
				i+1, payout.ID, util.WeiToEthString(&payout.Amount), payout.Address.Hex(), payout.State)
		}
	},
}

var payoutsSentCmd = &cobra.Command{
	Use:   "sent <id>",
	Short: "Marks a payout as delivered",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := uuid.Parse(args[0])
		if err != nil {
			failed("parsing payout id", err)
		}

		defaultDependencyInject()
		defer closeDependencies()

		payout, err := payoutInteractor.MarkSent(context.Background(), id)
		if err != nil {
			failed("marking payout", err)
		}
		fmt.Printf("✅ Payout %v marked as sent at %v\n", payout.ID, payout.SentTime.Format("2006-01-02 15:04:05"))
	},
}

func init() {
	rootCmd.AddCommand(payoutsCmd)
	payoutsCmd.AddCommand(payoutsSentCmd)
	payoutsCmd.Flags().StringVar(&payoutState, "state", "", "only list payouts in this state, 'new', 'sent' or 'reverted'")
}
