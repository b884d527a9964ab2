package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// schemaTargets maps schema names to the types they describe.
var schemaTargets = map[string]func() any{
	"save":    func() any { return new(state.SavedState) },
	"catalog": func() any { return new(content.MatterData) },
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [save|catalog]",
		Short: "Print the JSON Schema of the save or catalog format",
		Long: `Print a JSON Schema describing a persisted format.

  save     the serialised game state written by saves and journal bases
  catalog  the decoded game catalog

Examples:
  matter schema > save.schema.json
  matter schema catalog`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     []string{"save", "catalog"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "save"
			if len(args) == 1 {
				name = args[0]
			}
			return runSchema(name, cmd)
		},
	}

	return cmd
}

func runSchema(name string, cmd *cobra.Command) error {
	target, ok := schemaTargets[name]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown schema %q: must be save or catalog", name))
	}

	data, err := reflectSchema(target())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build schema", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// reflectSchema builds an indented JSON Schema for v. Saves written by
// newer versions may carry extra fields, so additional properties stay
// allowed.
func reflectSchema(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return json.MarshalIndent(r.Reflect(v), "", "  ")
}
