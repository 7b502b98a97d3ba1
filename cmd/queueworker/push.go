package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var payload string
	var wait bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Enqueue one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			q, _, err := buildQueue(cfg)
			if err != nil {
				return err
			}

			doc := JobDoc{IDValue: uuid.NewString(), Payload: payload}
			ctx := context.Background()

			if wait {
				q.StartConsumer()
				defer func() { _ = q.Close(ctx) }()
				if err := q.PushAndWait(ctx, doc, cfg.Timeout); err != nil {
					return fmt.Errorf("op=push: %w", err)
				}
				fmt.Println(doc.IDValue)
				return nil
			}

			if err := q.Push(ctx, doc); err != nil {
				return fmt.Errorf("op=push: %w", err)
			}
			fmt.Println(doc.IDValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "opaque payload string for the pushed document")
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the document reaches DONE or FAILED (starts a local consumer)")
	return cmd
}
