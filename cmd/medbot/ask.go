package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/msenthi7/medical-chatbot/app"
	"github.com/msenthi7/medical-chatbot/config"
	"github.com/msenthi7/medical-chatbot/services/chat"
	"github.com/spf13/cobra"
)

const askLongDesc string = `Ask one question through the chat pipeline and print the answer.

The question runs through the same retrieval, prompt and memory stages
as the web server. Pass --session to continue a conversation stored in
a persistent memory backend.

Examples:
  medbot ask "What are the symptoms of anemia?"
  MEMORY_BACKEND=bolt medbot ask --session 3f0c... "And how is it treated?"`

const askShortDesc string = "Ask a single question"

type askCommander struct {
	sessionID string
	sources   bool
}

func newAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Conversation session ID (default: a new session)")
	cmd.Flags().BoolVar(&cmder.sources, "sources", true, "Print the documents the answer was based on")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer, question string) error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	if cfg.Chat.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Chat.Timeout)
		defer cancel()
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := deps.Chat.Ask(ctx, chat.Request{SessionID: sessionID, Message: question})
	if err != nil {
		return err
	}

	return printAnswer(out, sessionID, answer, c.sources)
}

func printAnswer(out io.Writer, sessionID string, answer *chat.Answer, withSources bool) error {
	if _, err := fmt.Fprintln(out, answer.Text); err != nil {
		return err
	}
	if withSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	fmt.Fprintf(out, "\nsession: %s  model: %s  tokens: %d  latency: %dms\n",
		sessionID, answer.Model, answer.Usage.TotalTokens, answer.LatencyMs)
	return nil
}
