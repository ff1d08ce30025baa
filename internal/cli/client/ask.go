package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Error codes the chat loop stops on.
const (
	codeNotReady = "NOT_READY"
	codeNotFound = "NOT_FOUND"
)

// Answer mirrors the server's answer payload.
type Answer struct {
	Answer   string    `json:"answer"`
	Language string    `json:"language,omitempty"`
	Passages []Passage `json:"passages"`
}

// Passage is a transcript excerpt the answer was grounded on.
type Passage struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the ingested video",
		Long:  "Answers a question from the selected session's transcript. Without a question, starts an interactive chat on stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			if len(args) > 0 {
				return ask(cmd.Context(), cmd.OutOrStdout(), api, id, strings.Join(args, " "), showContext, outputJSON)
			}
			return chat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), api, id, showContext)
		},
	}

	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the transcript passages the answer used")

	return cmd
}

func ask(ctx context.Context, w io.Writer, api *APIClient, sessionID, question string, showContext, outputJSON bool) error {
	answer, err := api.Ask(ctx, sessionID, question)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	printAnswer(w, answer, showContext)
	return nil
}

func printAnswer(w io.Writer, a *Answer, showContext bool) {
	fmt.Fprintln(w, a.Answer)
	if !showContext || len(a.Passages) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Context ---")
	for _, p := range a.Passages {
		fmt.Fprintf(w, "[#%d, score %.3f] %s\n", p.Index, p.Score, strings.TrimSpace(p.Text))
	}
}

// chat reads one question per line until EOF, "exit" or cancellation. A
// session that is not ready ends the loop since no later question can succeed.
func chat(ctx context.Context, r io.Reader, w io.Writer, api *APIClient, sessionID string, showContext bool) error {
	scanner := bufio.NewScanner(r)
	fmt.Fprint(w, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
		case "exit", "quit":
			return nil
		default:
			err := ask(ctx, w, api, sessionID, question, showContext, false)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return ctx.Err()
			case HasCode(err, codeNotReady), HasCode(err, codeNotFound):
				return err
			default:
				fmt.Fprintf(w, "Error: %v\n", err)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, "> ")
	}
	return scanner.Err()
}
