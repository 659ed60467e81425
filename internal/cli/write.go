package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/store"
	"github.com/roach88/normgraph/internal/writer"
)

// WriteReport is the change set of one write in exported form.
type WriteReport struct {
	Token       string              `json:"token"`
	Created     []string            `json:"created"`
	Updated     []string            `json:"updated"`
	Diagnostics []writer.Diagnostic `json:"diagnostics,omitempty"`
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "write <query.cue> <payload.json>",
		Short: "Normalize a payload into the record store",
		Long: `Normalize one response payload into the record store, driven by a
query description file.

With --db, the snapshot database is loaded as the read-only overlay
before the write and the merged result is saved back afterwards.
Without it, the write runs against an empty store and the change set is
still reported.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, args[0], args[1], dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")
	return cmd
}

func runWrite(opts *RootOptions, queryPath, payloadPath, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	root, err := LoadQuery(queryPath)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	formatter.VerboseLog("Loaded query %q from %s", root.Call, queryPath)

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading payload", err)
	}
	pv, err := payload.Decode(data)
	if err != nil {
		formatter.Error(ErrCodePayload, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parsing payload", err)
	}

	var db *store.SnapshotDB
	var overlay *store.Snapshot
	if dbPath != "" {
		db, err = store.OpenSnapshotDB(dbPath)
		if err != nil {
			formatter.Error(ErrCodeSnapshotDB, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening snapshot database", err)
		}
		defer db.Close()

		overlay, err = db.Load(cmd.Context())
		if err != nil {
			formatter.Error(ErrCodeSnapshotDB, err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading snapshot", err)
		}
		formatter.VerboseLog("Loaded overlay with %d record(s)", len(overlay.RecordIDs()))
	}

	s := store.NewWithOverlay(overlay)
	result, err := writer.Write(s, root, pv)
	if err != nil {
		var we *writer.WriteError
		if errors.As(err, &we) {
			formatter.Error(ErrCodeWrite, we.Error(), string(we.Code))
			return WrapExitError(ExitFailure, "write rejected", err)
		}
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "write failed", err)
	}

	if db != nil {
		if err := db.Save(cmd.Context(), s.Snapshot()); err != nil {
			formatter.Error(ErrCodeSnapshotDB, err.Error(), nil)
			return WrapExitError(ExitCommandError, "saving snapshot", err)
		}
		formatter.VerboseLog("Saved snapshot to %s", dbPath)
	}

	report := WriteReport{
		Token:       result.Token,
		Created:     sortedIDs(result.Created),
		Updated:     sortedIDs(result.Updated),
		Diagnostics: result.Diagnostics,
	}
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return formatter.Success(formatReport(&report))
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatReport(r *WriteReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "token:   %s\n", r.Token)
	fmt.Fprintf(&b, "created: %s\n", joinOrDash(r.Created))
	fmt.Fprintf(&b, "updated: %s", joinOrDash(r.Updated))
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "\nwarning: %s: %s", d.RecordID, d.Message)
	}
	return b.String()
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
