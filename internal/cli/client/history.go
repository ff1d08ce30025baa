package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Turn is one entry of the session's chat log.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	At      string `json:"at"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the selected session's chat log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			turns, err := api.History(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(turns, "", "  ")
				fmt.Fprintln(w, string(output))
				return nil
			}

			if len(turns) == 0 {
				fmt.Fprintln(w, "No questions asked yet.")
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(w, "%s: %s\n", t.Role, t.Content)
			}
			return nil
		},
	}
}
