package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enzopoeta/i2a2-final/internal/adapters/events"
	"github.com/enzopoeta/i2a2-final/internal/contracts"
)

func dlqCmd(opts *globalOptions) *cobra.Command {
	var dlq string
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead-lettered documents",
	}
	cmd.PersistentFlags().StringVar(&dlq, "dlq", "", "dead letter queue (defaults to <queue>_dlq)")
	resolve := func() string {
		if dlq != "" {
			return dlq
		}
		return contracts.DLQName(opts.queue)
	}

	var peekLimit int
	peek := &cobra.Command{
		Use:   "peek",
		Short: "List dead-lettered messages without removing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := opts.opener()(cmd.Context())
			if err != nil {
				return err
			}
			defer ch.Close()
			records, err := events.NewDLQInspector(newLogger(), ch).Peek(cmd.Context(), resolve(), peekLimit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	peek.Flags().IntVarP(&peekLimit, "limit", "n", 10, "maximum messages to show")

	var replayLimit int
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Move dead-lettered messages back to the work queue with a fresh retry counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := opts.opener()(cmd.Context())
			if err != nil {
				return err
			}
			defer ch.Close()
			n, err := events.NewDLQInspector(newLogger(), ch).Replay(cmd.Context(), resolve(), opts.queue, replayLimit)
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d messages from %s to %s\n", n, resolve(), opts.queue)
			return err
		},
	}
	replay.Flags().IntVarP(&replayLimit, "limit", "n", 10, "maximum messages to replay")

	cmd.AddCommand(peek, replay)
	return cmd
}
