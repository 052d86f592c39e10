package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewTopicCommand constructs the `topic` command group and subcommands.
func NewTopicCommand(baseURL BaseURLFunc) *cobra.Command {
	topicCmd := &cobra.Command{Use: "topic", Short: "Topic operations"}
	topicCmd.AddCommand(
		newTopicCreateCommand(baseURL),
		newTopicListCommand(baseURL),
		newTopicMessagesCommand(baseURL),
	)
	return topicCmd
}

func newTopicCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			memo, _ := cmd.Flags().GetString("memo")
			out, err := postJSON(baseURL, "/v1/topics/create", map[string]string{"memo": memo})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out["topic_id"])
			return nil
		},
	}
	createCmd.Flags().String("memo", "", "Topic memo")
	return createCmd
}

func newTopicListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := getJSON(baseURL, "/v1/topics/list")
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out["topics"])
			return nil
		},
	}
}

func newTopicMessagesCommand(baseURL BaseURLFunc) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "Read messages from a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			limit, _ := cmd.Flags().GetInt("limit")
			since, _ := cmd.Flags().GetString("since")
			if topic == "" {
				return fmt.Errorf("--topic is required")
			}
			q := url.Values{}
			q.Set("topic", topic)
			if limit > 0 {
				q.Set("limit", fmt.Sprintf("%d", limit))
			}
			if since != "" {
				q.Set("since", since)
			}
			out, err := getJSON(baseURL, "/v1/topics/messages?"+q.Encode())
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out["messages"])
			return nil
		},
	}
	messagesCmd.Flags().String("topic", "", "Topic id")
	messagesCmd.Flags().Int("limit", 0, "Max messages (default 100)")
	messagesCmd.Flags().String("since", "", "Read from timestamp: RFC3339 or ms")
	return messagesCmd
}
