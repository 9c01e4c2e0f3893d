package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"medical-rag-chatbot/internal/config"

	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runAsk(ctx, cmd.OutOrStdout(), strings.Join(args, " "), showSources)
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", true, "print the retrieved chunks after the answer")
	return cmd
}

func runAsk(ctx context.Context, out io.Writer, question string, showSources bool) error {
	cfg, err := loadConfig(config.ModeAsk)
	if err != nil {
		return err
	}

	var done cleanup
	defer done.run()

	retriever, err := buildRetriever(ctx, cfg, nil, openRedis(cfg, &done), &done)
	if err != nil {
		return err
	}

	answer, err := retriever.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, answer.Text)
	if !showSources || len(answer.Sources) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	for i, s := range answer.Sources {
		location := s.Chunk.Source
		if s.Chunk.Page > 0 {
			location = fmt.Sprintf("%s p.%d", location, s.Chunk.Page)
		}
		fmt.Fprintf(out, "[%d] %s (score %.3f)\n", i+1, location, s.Score)
	}
	return nil
}
