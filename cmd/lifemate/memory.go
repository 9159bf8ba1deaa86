package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lifemate/lifemate-go/pkg/core"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

func newMemoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain the long-term memory",
	}
	cmd.AddCommand(
		newMemorySearchCmd(root),
		newMemoryListCmd(root),
		newMemoryStoreCmd(root),
		newMemoryBoostCmd(root),
		newMemoryDeleteCmd(root),
		newMemoryCleanupCmd(root),
	)
	return cmd
}

func newMemorySearchCmd(root *rootOptions) *cobra.Command {
	var (
		limit      int
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.SearchMemories(cmd.Context(), strings.Join(args, " "), limit, categories)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, true)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to categories")
	return cmd
}

func newMemoryListCmd(root *rootOptions) *cobra.Command {
	var (
		limit    int
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories by relevance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.ListMemories(cmd.Context(), category, limit)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, false)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	cmd.Flags().StringVar(&category, "category", "", "restrict to one category")
	return cmd
}

func newMemoryStoreCmd(root *rootOptions) *cobra.Command {
	var (
		key      string
		category string
		content  string
	)

	cmd := &cobra.Command{
		Use:   "store <value>",
		Short: "Store or replace a memory",
		Long:  `Store a memory under --key. A value that parses as JSON is stored as JSON, otherwise as a string.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			raw := strings.Join(args, " ")
			var value interface{} = raw
			var parsed interface{}
			if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
				value = parsed
			}

			rec, err := client.StoreMemory(cmd.Context(), memory.StoreInput{
				Key:      key,
				Value:    value,
				Category: category,
				Content:  content,
				Metadata: map[string]interface{}{"source": "cli"},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (id %d, version %d)\n", rec.Key, rec.ID, rec.Version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "memory key (required)")
	cmd.Flags().StringVar(&category, "category", memory.DefaultCategory, "memory category")
	cmd.Flags().StringVar(&content, "content", "", "text to embed (default: the value)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newMemoryBoostCmd(root *rootOptions) *cobra.Command {
	var delta float64

	cmd := &cobra.Command{
		Use:   "boost <id>",
		Short: "Increase the relevance of a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return core.NewLifeMateError("memory boost", fmt.Errorf("%w: id %q: %v", core.ErrInvalidInput, args[0], err))
			}

			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			relevance, err := client.BoostMemory(cmd.Context(), id, delta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "relevance of %d is now %.2f\n", id, relevance)
			return nil
		},
	}
	cmd.Flags().Float64Var(&delta, "delta", 0.1, "relevance increase")
	return cmd
}

func newMemoryDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a memory by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.DeleteMemory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newMemoryCleanupCmd(root *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete unused low-relevance memories now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := client.CleanMemories(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d memories\n", deleted)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "unused days before deletion (default: configured)")
	return cmd
}

func printRecords(out io.Writer, records []*storage.Record, withScore bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if withScore {
		fmt.Fprintln(w, "ID\tKEY\tCATEGORY\tRELEVANCE\tSCORE\tCONTENT")
	} else {
		fmt.Fprintln(w, "ID\tKEY\tCATEGORY\tRELEVANCE\tCONTENT")
	}
	for _, rec := range records {
		content := rec.Content
		if len([]rune(content)) > 60 {
			content = string([]rune(content)[:57]) + "..."
		}
		if withScore {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.3f\t%s\n", rec.ID, rec.Key, rec.Category, rec.RelevanceScore, rec.Score, content)
		} else {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n", rec.ID, rec.Key, rec.Category, rec.RelevanceScore, content)
		}
	}
	return w.Flush()
}
