package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"

	LogFormatText = "text"
	LogFormatJson = "json"
)

var (
	ErrorInvalidStore         = fmt.Errorf("store must be equal to 'bolt' or 'postgres' only")
	ErrorNoDbUri              = fmt.Errorf("service_db_uri is required for the postgres store")
	ErrorNoBoltPath           = fmt.Errorf("bolt_path is required for the bolt store")
	ErrorInvalidAuditInterval = fmt.Errorf("invalid time interval for audit process")
	ErrorInvalidCaller        = fmt.Errorf("caller must be a hex encoded address")
	ErrorInvalidLogFormat     = fmt.Errorf("log_format must be equal to 'text' or 'json' only")
)

var (
	TrailingSlashRE = regexp.MustCompile("/+$")
)

var (
	store    string
	dbUri    string
	boltPath string

	listenAddress string
	auditInterval time.Duration

	caller    common.Address
	hasCaller bool

	logLevel  string
	logFormat string
)

func setDefaults() {
	viper.SetDefault("store", StoreBolt)
	viper.SetDefault("bolt_path", "ethpool.db")
	viper.SetDefault("listen_address", ":9090")
	viper.SetDefault("audit_interval", "1m")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", LogFormatText)
}

func ReadConfig(filePath string) {
	setDefaults()

	viper.SetConfigFile(filePath)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Warnf("🟡 Failed reading config file: %v", err.Error())
	}

	err := initializeVariables()
	if err != nil {
		logrus.Fatalf("⛔️ Configuration error - %v", err.Error())
	}
}

// This method processes the configuration parameters and keeps the processed values
// in some variables for later accesses rapidly.
func initializeVariables() error {
	var err error

	// Storage stuff
	store = strings.TrimSpace(strings.ToLower(viper.GetString("store")))
	switch store {
	case StoreBolt:
		boltPath = strings.TrimSpace(viper.GetString("bolt_path"))
		if boltPath == "" {
			return ErrorNoBoltPath
		}
	case StorePostgres:
		dbUri = TrailingSlashRE.ReplaceAllString(strings.TrimSpace(viper.GetString("service_db_uri")), "")
		if dbUri == "" {
			return ErrorNoDbUri
		}
	default:
		return ErrorInvalidStore
	}

	// Server stuff
	listenAddress = strings.TrimSpace(viper.GetString("listen_address"))

	//---------------------------------------------------------------
	// audit interval
	strValue := viper.GetString("audit_interval")
	auditInterval, err = time.ParseDuration(strValue)
	if err != nil || auditInterval <= 0 {
		return ErrorInvalidAuditInterval
	}

	//---------------------------------------------------------------
	// default caller of the CLI commands
	hasCaller = false
	strValue = strings.TrimSpace(viper.GetString("caller"))
	if strValue != "" {
		if !common.IsHexAddress(strValue) {
			return ErrorInvalidCaller
		}
		caller = common.HexToAddress(strValue)
		hasCaller = true
	}

	// Logging stuff
	logLevel = strings.TrimSpace(strings.ToLower(viper.GetString("log_level")))
	logFormat = strings.TrimSpace(strings.ToLower(viper.GetString("log_format")))
	if logFormat != LogFormatText && logFormat != LogFormatJson {
		return ErrorInvalidLogFormat
	}

	return nil
}

//-------------------------------------------------------------------
// Normal configuration values

func GetStore() string {
	return store
}

func GetDbUri() string {
	return dbUri
}

func GetBoltPath() string {
	return boltPath
}

func GetListenAddress() string {
	return listenAddress
}

func GetAuditInterval() time.Duration {
	return auditInterval
}

func GetCaller() (common.Address, bool) {
	return caller, hasCaller
}

func GetLogLevel() string {
	return logLevel
}

func GetLogFormat() string {
	return logFormat
}

// -------------------------------------------------------------------
// Evaluating values

func IsPostgres() bool {
	return strings.Compare(store, StorePostgres) == 0
}
