package cmd

import (
	"fmt"
	"os"

	"ethpool/domain"
	"ethpool/domain/util"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	UnitEth = "eth"
	UnitWei = "wei"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ethpool",
	Short: "Pooled custody ledger with proportional rewards",
	Long: `ethpool keeps deposits of many principals in one pool. Team members add
rewards which are shared in proportion to the principal each depositor
has in the pool at that moment.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		domain.ReadConfig(cfgFile)
		setupLogging()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().String("caller", "", "address of the principal running the command")
	_ = viper.BindPFlag("caller", rootCmd.PersistentFlags().Lookup("caller"))
}

func setupLogging() {
	level, err := logrus.ParseLevel(domain.GetLogLevel())
	if err != nil {
		logrus.Warnf("🟡 unknown log level %q, using info", domain.GetLogLevel())
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if domain.GetLogFormat() == domain.LogFormatJson {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// requireCaller returns the configured caller or stops the command.
func requireCaller() common.Address {
	caller, ok := domain.GetCaller()
	if !ok {
		fmt.Println("❌ No caller is set. Pass --caller or set 'caller' in the config.")
		closeDependencies()
		os.Exit(1)
	}
	return caller
}

// requireCallerOr prefers an explicit address over the configured caller.
func requireCallerOr(address string) common.Address {
	if address != "" {
		return parseAddressArg(address)
	}
	return requireCaller()
}

func parseAddressArg(value string) common.Address {
	address, err := util.ParseAddress(value)
	if err != nil {
		failed("parsing address", err)
	}
	return address
}

func parseAmountArg(value string, unit string) *uint256.Int {
	var amount *uint256.Int
	var err error
	switch unit {
	case UnitWei:
		amount, err = util.ParseWei(value)
	case UnitEth:
		amount, err = util.ParseEther(value)
	default:
		err = fmt.Errorf("unit must be either '%v' or '%v'", UnitEth, UnitWei)
	}
	if err != nil {
		failed("parsing amount", err)
	}
	return amount
}

// failed reports err and exits with a non-zero status.
func failed(action string, err error) {
	fmt.Printf("❌ Failed %v - %v\n", action, err.Error())
	closeDependencies()
	os.Exit(1)
}
