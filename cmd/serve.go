package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ethpool/domain"
	"ethpool/interface/api"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var quit = make(chan bool)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the pool over HTTP and audits it periodically",
	Long: `Serves the pool and its metrics on 'listen_address' and audits the
ledger every 'audit_interval'. Stop it with SIGINT or SIGTERM.

The bolt store is locked while serving. Deposits, withdrawals, rewards and team
changes then go through the HTTP API, with the acting address in the X-Caller
header.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := logrus.StandardLogger().WithField("type", "cmd/serve")

		defaultDependencyInject()
		defer closeDependencies()

		server := &http.Server{
			Addr:              domain.GetListenAddress(),
			Handler:           api.NewServer(poolInteractor, teamInteractor, auditInteractor).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("listening on %v", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("⛔️ http server stopped")
			}
		}()

		audit()
		auditTicker := schedule(audit, domain.GetAuditInterval(), quit)

		signal.Ignore()
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		s := <-stop
		log.Infof("got signal '%v', stopping", s)

		auditTicker.Stop()
		close(quit)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("🟡 shutting down http server")
		}
	},
}

// schedule runs task every interval until done is closed. Runs never overlap.
func schedule(task func(), interval time.Duration, done chan bool) *time.Ticker {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {

			case <-ticker.C:
				ticker.Stop()
				task()
				ticker.Reset(interval)

			case <-done:
				return
			}
		}
	}()
	return ticker
}

func audit() {
	memo, err := auditInteractor.Audit(context.Background())
	if err != nil {
		fmt.Printf("❌ Audit failed - %v\n", err.Error())
		return
	}
	fmt.Printf("✅ Audit passed [accounts: %v, dust: %v wei]\n", memo.Accounts, memo.Dust.Dec())
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
