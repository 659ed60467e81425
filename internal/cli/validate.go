package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// FileResult is the validation outcome for one query file.
type FileResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results for a file or directory.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>",
		Short: "Validate query description files",
		Long: `Validate CUE query description files against the query schema.

Checks each file parses, matches the schema, and builds a well-formed
query tree. No store is touched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := FindQueryFiles(path)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	if len(files) == 0 {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("no query files found in %s", path), nil)
		return NewExitError(ExitCommandError, "no query files found")
	}

	result := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		fr := FileResult{Path: file, Valid: true}
		if _, err := LoadQuery(file); err != nil {
			fr.Valid = false
			fr.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		for _, fr := range result.Files {
			if fr.Valid {
				fmt.Fprintf(&b, "ok   %s", fr.Path)
			} else {
				fmt.Fprintf(&b, "FAIL %s\n     %s", fr.Path, fr.Error)
			}
			b.WriteByte('\n')
		}
		if result.Valid {
			fmt.Fprintf(&b, "%d file(s) valid", len(result.Files))
		} else {
			fmt.Fprintf(&b, "validation failed")
		}
		fmt.Fprintln(formatter.Writer, b.String())
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// outputCommandError prints a load error in the configured format and
// wraps it with the command-error exit code.
func outputCommandError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	if le, ok := err.(*LoadError); ok {
		code = le.Code
	}
	formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
