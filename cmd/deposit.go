package cmd

import (
	"context"
	"fmt"

	"ethpool/domain/util"

	"github.com/spf13/cobra"
)

var amountUnit string

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Deposits an amount for the caller",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmountArg(args[0], amountUnit)

		defaultDependencyInject()
		defer closeDependencies()

		depositor := requireCaller()
		if err := poolInteractor.Deposit(context.Background(), depositor, amount); err != nil {
			failed("depositing", err)
		}
		fmt.Printf("✅ Deposited %v for %v\n", util.WeiToEthString(amount), depositor.Hex())
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraws the whole balance of the caller",
	Long: `Withdraws the principal and every accrued reward of the caller. The
payout is recorded in the payout outbox.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		depositor := requireCaller()
		payout, err := poolInteractor.Withdraw(context.Background(), depositor)
		if err != nil {
			failed("withdrawing", err)
		}
		fmt.Printf("✅ Withdrawn %v (%v) for %v\n", util.WeiToEthString(payout), util.WeiString(payout), depositor.Hex())
	},
}

var rewardCmd = &cobra.Command{
	Use:   "reward <amount>",
	Short: "Adds a reward to the pool, team members only",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmountArg(args[0], amountUnit)

		defaultDependencyInject()
		defer closeDependencies()

		member := requireCaller()
		if err := poolInteractor.Receive(context.Background(), member, amount); err != nil {
			failed("adding reward", err)
		}
		fmt.Printf("✅ Reward of %v added by %v\n", util.WeiToEthString(amount), member.Hex())
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(rewardCmd)

	for _, cmd := range []*cobra.Command{depositCmd, rewardCmd} {
		cmd.Flags().StringVar(&amountUnit, "unit", UnitEth, "amount unit, 'eth' or 'wei'")
	}
}
