package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <locator>",
		Short: "Load a video transcript into the selected session",
		Long: `Fetches the transcript behind a locator, splits it into passages and indexes it.
The command waits until the session is ready.

Locators:
  https://www.youtube.com/watch?v=<id>, https://youtu.be/<id>
  s3://bucket/key
  file:///path/to/transcript.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, id, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Ingesting %s...\n", args[0])
			session, err := api.Ingest(cmd.Context(), id, args[0])
			if err != nil {
				return err
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			return printSession(cmd.OutOrStdout(), session, outputJSON)
		},
	}
}
