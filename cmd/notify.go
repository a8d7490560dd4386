/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/burncare/apiserver/internal/mq"
	"github.com/burncare/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume account lifecycle events and report pending approvals",
	Long: `Subscribes to the account event channel and logs every registration that
waits for administrator approval. Requires BROKER_BACKEND to be set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.NewFromConfig(ctx, cfg.Broker)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("no broker configured: set BROKER_BACKEND")
		}
		defer func() { _ = broker.Close() }()

		notifier := services.NewApprovalNotifier(log)
		log.Info("consuming account events", zap.String("channel", cfg.Broker.Channel))
		if err := broker.Subscribe(ctx, cfg.Broker.Channel, notifier.Handle); err != nil && ctx.Err() == nil {
			return fmt.Errorf("subscribe %s: %w", cfg.Broker.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
