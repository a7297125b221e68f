package cmd

import (
	"context"
	"fmt"

	"ethpool/domain/util"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Reconciles accounts against the pool totals and custody",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		memo, err := auditInteractor.Audit(context.Background())
		if memo != nil {
			fmt.Printf("accounts        : %v\n", memo.Accounts)
			fmt.Printf("total principal : %v\n", util.WeiToEthString(&memo.TotalPrincipal))
			fmt.Printf("sum principal   : %v\n", util.WeiToEthString(&memo.SumPrincipal))
			fmt.Printf("pending rewards : %v\n", util.WeiToEthString(&memo.PendingRewards))
			fmt.Printf("custody         : %v\n", util.WeiToEthString(&memo.Custody))
			fmt.Printf("dust            : %v\n", util.WeiString(&memo.Dust))
		}
		if err != nil {
			failed("auditing ledger", err)
		}
		fmt.Println("✅ Ledger is consistent")
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
