package main

import (
	"context"
	"fmt"

	"github.com/kestrel-broker/kestrel/internal/domain"
	"github.com/spf13/cobra"
)

func subscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "subscription", Short: "Manage subscriptions"}
	cmd.AddCommand(subscriptionCreateCmd(), subscriptionGetCmd(), subscriptionListCmd(), subscriptionDeleteCmd())
	return cmd
}

func subscriptionCreateCmd() *cobra.Command {
	var (
		topicID                              string
		filterJSON                           string
		maxAttempts, backoffMin, backoffMax int
	)
	cmd := &cobra.Command{
		Use:   "create ID",
		Short: "Create a subscription on a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var rawFilter map[string]any
			if filterJSON != "" {
				if err := readJSONArg(filterJSON, &rawFilter); err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}
			filter, err := domain.ValidateFilter(rawFilter)
			if err != nil {
				return err
			}

			sub := &domain.Subscription{
				ID:                  args[0],
				TopicID:             topicID,
				Filter:              filter,
				MaxDeliveryAttempts: maxAttempts,
				BackoffMinSeconds:   backoffMin,
				BackoffMaxSeconds:   backoffMax,
			}
			if sub.MaxDeliveryAttempts == 0 {
				sub.MaxDeliveryAttempts = cfg.Defaults.MaxDeliveryAttempts
			}
			if sub.BackoffMinSeconds == 0 {
				sub.BackoffMinSeconds = cfg.Defaults.BackoffMinSeconds
			}
			if sub.BackoffMaxSeconds == 0 {
				sub.BackoffMaxSeconds = cfg.Defaults.BackoffMaxSeconds
			}

			if err := s.CreateSubscription(context.Background(), sub); err != nil {
				return err
			}
			return printer().PrintSubscriptions([]*domain.Subscription{sub})
		},
	}
	cmd.Flags().StringVar(&topicID, "topic", "", "owning topic id (required)")
	cmd.Flags().StringVar(&filterJSON, "filter", "", "JSON filter object, or @file.json")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "max delivery attempts (defaults from config)")
	cmd.Flags().IntVar(&backoffMin, "backoff-min", 0, "min backoff seconds (defaults from config)")
	cmd.Flags().IntVar(&backoffMax, "backoff-max", 0, "max backoff seconds (defaults from config)")
	cmd.MarkFlagRequired("topic")
	return cmd
}

func subscriptionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Get a subscription, with live per-state counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			sub, err := s.GetSubscription(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printer().PrintSubscriptions([]*domain.Subscription{sub})
		},
	}
}

func subscriptionListCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			subs, err := s.ListSubscriptions(context.Background(), offset, limit)
			if err != nil {
				return err
			}
			return printer().PrintSubscriptions(subs)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 20, "pagination limit")
	return cmd
}

func subscriptionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a subscription and all its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteSubscription(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
