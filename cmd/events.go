/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/connectapp/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print domain events from the configured channel as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if client == nil {
			return errors.New("event publishing is disabled; set MQ_BACKEND")
		}
		defer client.Close()

		out := cmd.OutOrStdout()
		err = client.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			_, err := fmt.Fprintf(out, "%s\n", msg.Data)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
