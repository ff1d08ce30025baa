package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/cloo-solutions/videochat/internal/config"
	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/service"
	"github.com/spf13/cobra"
)

// ChatCmd returns the chat command, which runs the whole pipeline in-process
// without a server.
func ChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <locator>",
		Short: "Chat with a video from the terminal",
		Long:  "Ingest a video transcript and answer questions about it from stdin, without starting the API server.",
		Args:  cobra.ExactArgs(1),
		RunE:  runChat,
	}

	cmd.Flags().Bool("show-context", false, "Print the transcript passages each answer used")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := newSessionDeps(ctx, cfg)
	if err != nil {
		return err
	}
	session := service.NewSession("local", deps)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingesting %s...\n", args[0])
	if err := session.Ingest(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}
	if md, ok := session.Metadata(); ok {
		title := md.Title
		if title == "" {
			title = md.Locator
		}
		fmt.Fprintf(out, "Ready: %s (%d passages)\n", title, session.Status().Passages)
	}

	showContext, _ := cmd.Flags().GetBool("show-context")
	return chatLoop(ctx, cmd.InOrStdin(), out, session, showContext)
}

type asker interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// chatLoop answers one question per line until EOF, "exit" or ctx is done.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session asker, showContext bool) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
		case "exit", "quit":
			return nil
		default:
			answer, err := session.Ask(ctx, question)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			} else {
				fmt.Fprintln(out, answer.Text)
				if showContext {
					for _, p := range answer.Context {
						fmt.Fprintf(out, "  [#%d, score %.3f] %s\n", p.Index, p.Score, strings.TrimSpace(p.Text))
					}
				}
			}
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
