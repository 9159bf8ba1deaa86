package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lifemate/lifemate-go/pkg/core"
	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/pipeline"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var (
		userID      string
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a question, or start an interactive session without arguments",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				resp := client.Chat(cmd.Context(), userID, strings.Join(args, " "), nil)
				return printResponse(out, resp, showMetrics)
			}
			return chatLoop(cmd, client, userID, showMetrics)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "default", "user id")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print pipeline metrics as JSON")
	return cmd
}

// chatLoop reads one message per line until EOF or "exit", keeping history.
func chatLoop(cmd *cobra.Command, client *core.Client, userID string, showMetrics bool) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var history []llm.Message

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		if message == "exit" || message == "quit" {
			break
		}
		if message != "" {
			resp := client.Chat(cmd.Context(), userID, message, history)
			if err := printResponse(out, resp, showMetrics); err != nil {
				return err
			}
			history = append(history,
				llm.Message{Role: llm.RoleUser, Content: message},
				llm.Message{Role: llm.RoleAssistant, Content: resp.Response},
			)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func printResponse(out io.Writer, resp *pipeline.ChatResponse, showMetrics bool) error {
	fmt.Fprintln(out, resp.Response)
	if !showMetrics {
		return nil
	}

	data, err := json.MarshalIndent(resp.Metrics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[intent: %s]\n%s\n", resp.Intent, data)
	return nil
}
