package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *cobra.Command {
	root := &cobra.Command{Use: "videochat", Short: "root"}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("session", "", "Session ID")
	AddHelpJSONFlag(root)

	session := &cobra.Command{Use: "session", Short: "Manage sessions"}
	session.AddCommand(&cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		RunE:    func(cmd *cobra.Command, args []string) error { return nil },
	})
	session.AddCommand(&cobra.Command{
		Use:    "debug",
		Hidden: true,
		RunE:   func(cmd *cobra.Command, args []string) error { return nil },
	})

	ingest := &cobra.Command{
		Use:     "ingest <locator>",
		Short:   "Ingest a transcript",
		Example: "  videochat ingest https://youtu.be/abc",
		Args:    cobra.ExactArgs(1),
		RunE:    func(cmd *cobra.Command, args []string) error { return nil },
	}
	ingest.Flags().StringP("language", "l", "", "Preferred transcript language")
	_ = ingest.MarkFlagRequired("language")

	root.AddCommand(session, ingest)
	return root
}

func flagByName(flags []FlagSchema, name string) (FlagSchema, bool) {
	for _, f := range flags {
		if f.Name == name {
			return f, true
		}
	}
	return FlagSchema{}, false
}

func subSchema(t *testing.T, schema CommandSchema, name string) CommandSchema {
	t.Helper()
	for _, sub := range schema.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	t.Fatalf("subcommand %q not found", name)
	return CommandSchema{}
}

func TestGenerateSchema(t *testing.T) {
	root := newTestTree()
	schema := GenerateSchema(root)

	assert.Equal(t, "videochat", schema.Name)
	assert.False(t, schema.Runnable)
	require.Len(t, schema.Subcommands, 2)

	session := subSchema(t, schema, "session")
	assert.Equal(t, "session", session.Name)
	require.Len(t, session.Subcommands, 1, "hidden commands are omitted")
	assert.Equal(t, []string{"rm"}, session.Subcommands[0].Aliases)
	assert.Equal(t, "videochat session delete", session.Subcommands[0].Path)

	ingest := subSchema(t, schema, "ingest")
	assert.True(t, ingest.Runnable)
	assert.Equal(t, "videochat ingest https://youtu.be/abc", ingest.Example)

	lang, ok := flagByName(ingest.Flags, "language")
	require.True(t, ok)
	assert.True(t, lang.Required)
	assert.Equal(t, "l", lang.Shorthand)
	assert.False(t, lang.Inherited)

	sessionFlag, ok := flagByName(ingest.Flags, "session")
	require.True(t, ok)
	assert.True(t, sessionFlag.Inherited)
	assert.False(t, sessionFlag.Required)

	_, ok = flagByName(ingest.Flags, helpJSONFlag)
	assert.False(t, ok)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, newTestTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "videochat", decoded.Name)
	assert.Len(t, decoded.Subcommands, 2)
}

func TestFindTargetCommand(t *testing.T) {
	root := newTestTree()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "root", args: nil, want: "videochat"},
		{name: "subcommand", args: []string{"ingest"}, want: "videochat ingest"},
		{name: "nested alias", args: []string{"session", "rm"}, want: "videochat session delete"},
		{name: "positional stops walk", args: []string{"ingest", "session"}, want: "videochat ingest"},
		{name: "flag value skipped", args: []string{"--session", "ingest", "session"}, want: "videochat session"},
		{name: "root persistent flag value", args: []string{"--session", "abc", "ingest"}, want: "videochat ingest"},
		{name: "inherited flag value", args: []string{"session", "--session", "abc", "rm"}, want: "videochat session delete"},
		{name: "shorthand flag value", args: []string{"ingest", "-l", "session"}, want: "videochat ingest"},
		{name: "bool flag", args: []string{"--output", "ingest"}, want: "videochat ingest"},
		{name: "inline flag value", args: []string{"--session=abc", "ingest"}, want: "videochat ingest"},
		{name: "unknown word", args: []string{"nope"}, want: "videochat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findTargetCommand(root, tt.args).CommandPath())
		})
	}
}
