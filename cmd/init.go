package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deployerAddress string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes the pool",
	Long: `Initializes an empty pool. The deployer, which defaults to the caller,
becomes the first team member.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		var deployer = requireCallerOr(deployerAddress)
		if err := teamInteractor.Seed(context.Background(), deployer); err != nil {
			failed("initializing pool", err)
		}
		fmt.Printf("✅ Pool initialized, team member: %v\n", deployer.Hex())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&deployerAddress, "deployer", "", "deployer address, defaults to the caller")
}
