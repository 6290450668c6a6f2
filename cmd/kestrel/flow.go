package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish TOPIC_ID MESSAGES_JSON",
		Short: "Publish a JSON array of envelopes to a topic",
		Long:  "MESSAGES_JSON is a JSON array of objects, or @file.json to read it from a file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var messages []any
			if err := readJSONArg(args[1], &messages); err != nil {
				return fmt.Errorf("invalid messages JSON: %w", err)
			}
			n, err := s.Publish(context.Background(), args[0], messages)
			if err != nil {
				return err
			}
			return printer().Print(map[string]int{"inserted": n})
		},
	}
}

func consumeCmd() *cobra.Command {
	var consumerID string
	var batchSize int
	cmd := &cobra.Command{
		Use:   "consume SUBSCRIPTION_ID",
		Short: "Lease a batch of available messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			msgs, err := s.Consume(context.Background(), args[0], consumerID, batchSize)
			if err != nil {
				return err
			}
			return printer().PrintMessages(msgs)
		},
	}
	cmd.Flags().StringVar(&consumerID, "consumer-id", "", "consumer identity (required)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "max messages to lease (1-100)")
	cmd.MarkFlagRequired("consumer-id")
	return cmd
}

func ackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack SUBSCRIPTION_ID MESSAGE_ID...",
		Short: "Acknowledge delivered messages",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			n, err := s.Ack(context.Background(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printer().Print(map[string]int{"acked": n})
		},
	}
}

func nackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nack SUBSCRIPTION_ID MESSAGE_ID...",
		Short: "Negative-acknowledge delivered messages (reschedule or DLQ)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			n, err := s.Nack(context.Background(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printer().Print(map[string]int{"transitioned": n})
		},
	}
}

func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dlq", Short: "Manage the dead-letter queue"}
	cmd.AddCommand(dlqListCmd(), dlqReprocessCmd())
	return cmd
}

func dlqListCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list SUBSCRIPTION_ID",
		Short: "List dead-lettered messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			msgs, err := s.ListDLQ(context.Background(), args[0], offset, limit)
			if err != nil {
				return err
			}
			return printer().PrintMessages(msgs)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 20, "pagination limit")
	return cmd
}

func dlqReprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess SUBSCRIPTION_ID MESSAGE_ID...",
		Short: "Move dead-lettered messages back to available",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			n, err := s.ReprocessDLQ(context.Background(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printer().Print(map[string]int{"reprocessed": n})
		},
	}
}

func janitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Run the janitor sweeps once (unlock stuck leases + GC acked messages)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			unlocked, err := s.UnlockStuck(context.Background(), cfg.Janitor.LockTimeout)
			if err != nil {
				return err
			}
			gced, err := s.GCAcked(context.Background(), cfg.Janitor.RetentionAge)
			if err != nil {
				return err
			}
			return printer().Print(map[string]int{"unlocked": unlocked, "gc_deleted": gced})
		},
	}
	return cmd
}
