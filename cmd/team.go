package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manages the team members allowed to add rewards",
}

var teamAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Adds a team member",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		member := parseAddressArg(args[0])

		defaultDependencyInject()
		defer closeDependencies()

		if err := teamInteractor.AddMember(context.Background(), requireCaller(), member); err != nil {
			failed("adding team member", err)
		}
		fmt.Printf("✅ %v is a team member\n", member.Hex())
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Removes a team member",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		member := parseAddressArg(args[0])

		defaultDependencyInject()
		defer closeDependencies()

		if err := teamInteractor.RemoveMember(context.Background(), requireCaller(), member); err != nil {
			failed("removing team member", err)
		}
		fmt.Printf("✅ %v is not a team member\n", member.Hex())
	},
}

var teamCheckCmd = &cobra.Command{
	Use:   "check <address>",
	Short: "Checks whether an address is a team member",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		member := parseAddressArg(args[0])

		defaultDependencyInject()
		defer closeDependencies()

		ok, err := teamInteractor.IsMember(context.Background(), member)
		if err != nil {
			failed("checking team member", err)
		}
		fmt.Printf("%v: %v\n", member.Hex(), ok)
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the team members",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer closeDependencies()

		members, err := teamInteractor.Members(context.Background())
		if err != nil {
			failed("listing team members", err)
		}

		fmt.Printf("------------- TEAM MEMBERS -----------------\n")
		for i, member := range members {
			fmt.Printf("#%03d - %v\n", i+1, member.Hex())
		}
	},
}

func init() {
	rootCmd.AddCommand(teamCmd)
	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	teamCmd.AddCommand(teamCheckCmd)
	teamCmd.AddCommand(teamListCmd)
}
