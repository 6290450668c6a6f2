package main

import (
	"context"
	"fmt"

	"github.com/kestrel-broker/kestrel/internal/domain"
	"github.com/spf13/cobra"
)

func topicCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "topic", Short: "Manage topics"}
	cmd.AddCommand(topicCreateCmd(), topicGetCmd(), topicListCmd(), topicDeleteCmd())
	return cmd
}

func topicCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create ID",
		Short: "Create a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			topic, err := s.CreateTopic(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printer().PrintTopics([]*domain.Topic{topic})
		},
	}
}

func topicGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Get a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			topic, err := s.GetTopic(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printer().Print(topic)
		},
	}
}

func topicListCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			topics, err := s.ListTopics(context.Background(), offset, limit)
			if err != nil {
				return err
			}
			return printer().PrintTopics(topics)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 20, "pagination limit")
	return cmd
}

func topicDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a topic and all its subscriptions/messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteTopic(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
