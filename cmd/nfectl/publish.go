package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enzopoeta/i2a2-final/internal/adapters/events"
)

func publishCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [file]",
		Short: "Extract a ZIP export or NFe XML and publish every document to the onboarding queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := loadDocuments(args[0])
			if err != nil {
				return err
			}
			publisher := events.NewQueuePublisher(newLogger(), opts.opener(), opts.queue)
			defer publisher.Close()

			published, failed := 0, 0
			for _, doc := range batch.Documents {
				if publisher.Publish(cmd.Context(), doc) {
					published++
					continue
				}
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d notas fiscais: %d published to queue, %d failed\n",
				len(batch.Documents), published, failed)
			if failed > 0 {
				return fmt.Errorf("%d documents were not published", failed)
			}
			return nil
		},
	}
}

func (o *globalOptions) opener() events.Opener {
	return events.NewOpener(newLogger(), events.AMQPConfig{URL: o.amqpURL, ConnectAttempts: o.attempts})
}
