package cmd

import (
	"context"
	"fmt"

	"ethpool/domain/util"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the state of the pool",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		ctx := context.Background()
		deployment, err := teamInteractor.Deployment(ctx)
		if err != nil {
			failed("loading deployment", err)
		}
		state, err := poolInteractor.State(ctx)
		if err != nil {
			failed("loading pool state", err)
		}
		audit, err := auditInteractor.LastAudit(ctx)
		if err != nil {
			failed("loading last audit", err)
		}

		fmt.Printf("------------- POOL -----------------\n")
		fmt.Printf("deployer        : %v (%v)\n", deployment.Deployer.Hex(), deployment.DeployTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("total principal : %v\n", util.WeiToEthString(&state.TotalPrincipal))
		fmt.Printf("custody         : %v\n", util.WeiToEthString(&state.Custody))
		fmt.Printf("acc per share   : %v\n", state.AccPerShare.Dec())
		if audit == nil {
			fmt.Printf("last audit      : never\n")
			return
		}
		mark := "✅"
		if !audit.Consistent {
			mark = "⛔️"
		}
		fmt.Printf("last audit      : %v %v, %v accounts, dust %v\n",
			mark, audit.Time.Format("2006-01-02 15:04:05"), audit.Accounts, util.WeiString(&audit.Dust))
	},
}

var accountCmd = &cobra.Command{
	Use:   "account [address]",
	Short: "Prints an account, defaults to the caller",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		address := ""
		if len(args) == 1 {
			address = args[0]
		}

		defaultDependencyInject()
		defer closeDependencies()

		id := requireCallerOr(address)
		view, err := poolInteractor.Account(context.Background(), id)
		if err != nil {
			failed("loading account", err)
		}

		fmt.Printf("------------- ACCOUNT %v -----------------\n", id.Hex())
		fmt.Printf("principal : %v\n", util.WeiToEthString(&view.Account.Principal))
		fmt.Printf("pending   : %v\n", util.WeiToEthString(view.Pending))
		fmt.Printf("balance   : %v (%v)\n", util.WeiToEthString(view.Balance), util.WeiString(view.Balance))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(accountCmd)
}
