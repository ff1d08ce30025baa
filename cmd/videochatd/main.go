package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/videochat/internal/cli"
	"github.com/cloo-solutions/videochat/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "videochatd",
		Short: "Videochat daemon and CLI",
		Long:  "Videochat daemon for serving the question-answering API and chatting with a video locally",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ChatCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
