package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antredesloutres/otternel/internal/actions"
	"github.com/antredesloutres/otternel/internal/trigger"
	"github.com/spf13/cobra"
)

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "Inspect trigger files",
}

var triggersCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a trigger file",
	Long: `Parse and compile a trigger file the way the watcher does, then
report every entry that would be dropped and every action identifier
that no handler knows about.

The command exits with status 1 when any problem is found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read trigger file: %w", err)
		}
		return checkTriggers(cmd.OutOrStdout(), data, trigger.FormatFromPath(args[0]))
	},
}

func init() {
	triggersCmd.AddCommand(triggersCheckCmd)
}

// checkTriggers writes a report for the given trigger file content and returns
// an error when at least one entry is dropped or names an unknown action.
func checkTriggers(w io.Writer, data []byte, format trigger.Format) error {
	defs, err := trigger.Parse(data, format)
	if err != nil {
		return err
	}

	reg, errs := trigger.Compile(defs)
	for _, e := range errs {
		fmt.Fprintf(w, "dropped: %v\n", e)
	}

	unknown := 0
	for _, t := range reg.Triggers() {
		if _, ok := actions.ParseKind(t.Action); !ok {
			unknown++
			fmt.Fprintf(w, "unknown action: trigger %q uses %q (known: %s)\n",
				t.Name, t.Action, strings.Join(actions.Known(), ", "))
		}
	}

	fmt.Fprintf(w, "%d trigger(s) loaded, %d dropped, %d unknown action(s)\n",
		reg.Len(), len(errs), unknown)

	if len(errs) > 0 || unknown > 0 {
		return fmt.Errorf("trigger file has %d problem(s)", len(errs)+unknown)
	}
	return nil
}
