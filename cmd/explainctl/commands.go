package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edgard/explainbot/internal/config"
	"github.com/edgard/explainbot/internal/database"
	"github.com/edgard/explainbot/internal/gemini"
	"github.com/edgard/explainbot/internal/history"
	"github.com/edgard/explainbot/internal/keyword"
	"github.com/edgard/explainbot/internal/search"
	"github.com/edgard/explainbot/internal/segment"
)

const redacted = "<redacted>"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "explainctl",
		Short:         "Inspect explainbot configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	load := func() (*config.Config, error) {
		return config.LoadConfig(configPath)
	}

	root.AddCommand(
		newMatchCmd(load),
		newToolsCmd(load),
		newSegmentCmd(load),
		newConfigCmd(load),
		newContextCmd(load),
	)
	return root
}

type loader func() (*config.Config, error)

func newMatchCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "match <text>",
		Short: "Show the keyword framing selected for a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			kw, errs := cfg.KeywordConfig()
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", e)
			}

			fragment, ok := keyword.Match(strings.Join(args, " "), kw)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no match (default framing)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), fragment)
			return nil
		},
	}
}

func newToolsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "tools [available...]",
		Short: "Show which search tool would be enabled",
		Long:  "Resolves the configured search tool names against the given available tools, or against the Gemini backend's tools when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cfg.ContentGeneration.EnableTools {
				fmt.Fprintln(cmd.OutOrStdout(), "tools disabled")
				return nil
			}

			available := args
			if len(available) == 0 {
				available = []string{gemini.SearchToolName}
			}
			name, ok := search.Resolve(available, cfg.SearchConfig())
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no search tool")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newSegmentCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "segment",
		Short: "Split text read from stdin the way replies are delivered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			segments := segment.Split(strings.TrimSpace(string(data)), cfg.SegmentOptions())
			for i, s := range segments {
				fmt.Fprintf(cmd.OutOrStdout(), "--- %d/%d (%d chars) ---\n%s\n", i+1, len(segments), len([]rune(s)), s)
			}
			return nil
		},
	}
}

func newConfigCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			out := *cfg
			if out.Gemini.APIKey != "" {
				out.Gemini.APIKey = redacted
			}
			if out.Telegram.Token != "" {
				out.Telegram.Token = redacted
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newContextCmd(load loader) *cobra.Command {
	var replyTo, requester int64

	cmd := &cobra.Command{
		Use:   "context <chat_id>",
		Short: "Print the conversation context a request in a chat would see",
		Long:  "Assembles the context window from the configured database for a request arriving now in the given chat.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Database.Path); err != nil {
				return fmt.Errorf("open database: %w", err)
			}

			db, err := database.NewDB(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			a := history.NewAssembler(database.NewStore(db, log), cfg.HistoryConfig(), history.WithLogger(log))
			res := a.Assemble(cmd.Context(), history.Request{
				ChatID:           chatID,
				RequesterID:      requester,
				TriggerReplyToID: replyTo,
			})
			if res.Err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", res.Err)
			}
			if len(res.Messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no context")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), history.Format(res.Messages))
			return nil
		},
	}
	cmd.Flags().Int64Var(&replyTo, "reply-to", 0, "Message ID the request replies to")
	cmd.Flags().Int64Var(&requester, "requester", 0, "User ID of the requester")
	return cmd
}
