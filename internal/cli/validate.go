package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/content"
)

// ErrCodeCUE marks a catalog that failed CUE parsing or schema unification.
const ErrCodeCUE = "E100"

// CatalogError is one problem found in a catalog.
type CatalogError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// CatalogSummary counts what a valid catalog declares.
type CatalogSummary struct {
	Version    string `json:"version"`
	Items      int    `json:"items"`
	Generators int    `json:"generators"`
	Upgrades   int    `json:"upgrades"`
	Rules      int    `json:"rules"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool            `json:"valid"`
	Catalog *CatalogSummary `json:"catalog,omitempty"`
	Errors  []CatalogError  `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [content-dir]",
		Short: "Validate a game catalog",
		Long: `Validate a directory of CUE catalog files.

The files are unified with the catalog schema, then checked for references
to undeclared items, generators, upgrades, rules, topics and scientists.
With no argument the --content directory is validated, or the built-in
catalog when that is unset too.

Exit codes:
  0 - Catalog is valid
  1 - Catalog has errors
  2 - Command error

Examples:
  matter validate ./catalog
  matter validate --format json ./catalog`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *rootOpts
			if len(args) == 1 {
				opts.Content = args[0]
			}
			return runValidate(&opts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	source := opts.Content
	if source == "" {
		source = "built-in catalog"
	}
	f.VerboseLog("Validating %s", source)

	m, err := loadMatter(opts)
	if err == nil {
		result := ValidationResult{
			Valid: true,
			Catalog: &CatalogSummary{
				Version:    m.Version,
				Items:      len(m.Items),
				Generators: len(m.Generators),
				Upgrades:   len(m.Upgrades),
				Rules:      len(m.Narrative),
			},
		}
		return f.Success(result, func(w io.Writer) {
			c := result.Catalog
			fmt.Fprintf(w, "✓ %s is valid (version %s)\n", source, c.Version)
			fmt.Fprintf(w, "  %d items, %d generators, %d upgrades, %d narrative rules\n",
				c.Items, c.Generators, c.Upgrades, c.Rules)
		})
	}

	catalogErrs, ok := catalogErrors(err)
	if !ok {
		return WrapExitError(ExitCommandError, "failed to read catalog", err)
	}

	result := ValidationResult{Valid: false, Errors: catalogErrs}
	return f.Fail(ExitFailure, ErrCodeContent,
		fmt.Sprintf("%d catalog error(s)", len(catalogErrs)), result,
		func(w io.Writer) {
			fmt.Fprintf(w, "✗ %s is invalid\n", source)
			for _, e := range catalogErrs {
				if e.Line > 0 {
					fmt.Fprintf(w, "  %s:%d [%s] %s\n", e.File, e.Line, e.Code, e.Message)
					continue
				}
				fmt.Fprintf(w, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
			}
		})
}

// catalogErrors flattens a load failure into reportable errors. It reports
// false for I/O failures that say nothing about the catalog itself.
func catalogErrors(err error) ([]CatalogError, bool) {
	var verrs content.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]CatalogError, len(verrs))
		for i, e := range verrs {
			out[i] = CatalogError{Code: e.Code, Field: e.Field, Message: e.Message}
		}
		return out, true
	}

	var lerr *content.LoadError
	if errors.As(err, &lerr) {
		ce := CatalogError{Code: ErrCodeCUE, Field: lerr.Field, Message: lerr.Message}
		if lerr.Pos.IsValid() {
			ce.File = lerr.Pos.Filename()
			ce.Line = lerr.Pos.Line()
		}
		return []CatalogError{ce}, true
	}

	return nil, false
}
