// Package cli holds helpers shared by the videochat and videochatd command
// trees. Both binaries accept --help-json, which prints a machine-readable
// description of any command so scripts and agents can discover the session,
// ingest and ask commands without scraping help text.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Inherited   bool   `json:"inherited,omitempty"`
}

type CommandSchema struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Use         string          `json:"use,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Example     string          `json:"example,omitempty"`
	Runnable    bool            `json:"runnable"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema describes cmd and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Path:        cmd.CommandPath(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        strings.TrimSpace(cmd.Long),
		Example:     strings.TrimSpace(cmd.Example),
		Runnable:    cmd.Runnable(),
		Flags:       commandFlags(cmd),
	}

	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

// commandFlags lists local flags first, then persistent flags inherited from
// parents such as --session and --output.
func commandFlags(cmd *cobra.Command) []FlagSchema {
	skip := func(f *pflag.Flag) bool {
		return f.Hidden || f.Name == "help" || f.Name == helpJSONFlag
	}

	var flags []FlagSchema
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !skip(f) {
			flags = append(flags, flagSchema(f, false))
		}
	})

	var inherited []FlagSchema
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if !skip(f) {
			inherited = append(inherited, flagSchema(f, true))
		}
	})
	sort.Slice(inherited, func(i, j int) bool { return inherited[i].Name < inherited[j].Name })

	return append(flags, inherited...)
}

func flagSchema(f *pflag.Flag, inherited bool) FlagSchema {
	schema := FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Description: f.Usage,
		Inherited:   inherited,
	}
	if f.DefValue != "" && f.DefValue != "[]" {
		schema.Default = f.DefValue
	}
	// MarkFlagRequired records the requirement on the flag itself.
	if req, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok && len(req) > 0 && req[0] == "true" {
		schema.Required = true
	}
	return schema
}

// WriteSchema writes the schema of cmd to w as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(GenerateSchema(cmd)); err != nil {
		return fmt.Errorf("failed to encode command schema: %w", err)
	}
	return nil
}

// AddHelpJSONFlag registers --help-json on root so every command accepts it.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// CheckHelpJSON prints the schema of the command named in os.Args and exits
// when --help-json is present. It runs before Execute so commands with
// required arguments can still be described.
func CheckHelpJSON(rootCmd *cobra.Command) {
	args := os.Args[1:]
	for i, arg := range args {
		if arg != "--"+helpJSONFlag {
			continue
		}
		if err := WriteSchema(os.Stdout, findTargetCommand(rootCmd, args[:i])); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// findTargetCommand walks args down the command tree. Flags and their values
// are skipped; the walk stops at the first word that is not a subcommand,
// which is a positional argument such as a locator or question.
func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	for len(args) > 0 {
		arg := args[0]
		args = args[1:]

		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && flagTakesValue(cmd, arg) && len(args) > 0 {
				args = args[1:]
			}
			continue
		}

		sub := subcommand(cmd, arg)
		if sub == nil {
			return cmd
		}
		cmd = sub
	}
	return cmd
}

func subcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}

func flagTakesValue(cmd *cobra.Command, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	long := strings.HasPrefix(arg, "--")
	if !long && len(name) != 1 {
		return false
	}

	// Persistent flags are only merged into Flags() once the command has
	// parsed, so look them up on their own set as well.
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags(), cmd.InheritedFlags()} {
		var f *pflag.Flag
		if long {
			f = fs.Lookup(name)
		} else {
			f = fs.ShorthandLookup(name)
		}
		if f != nil {
			return f.NoOptDefVal == ""
		}
	}
	return false
}
