package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/normgraph/internal/payload"
	"github.com/roach88/normgraph/internal/store"
)

// RecordReport is the exported view of one cached record.
type RecordReport struct {
	ID     string         `json:"id"`
	State  string         `json:"state"`
	Type   string         `json:"type,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath, rootCall, rootArg string

	cmd := &cobra.Command{
		Use:   "state [data-id]",
		Short: "Inspect a cached record",
		Long: `Inspect one record of a snapshot database, either directly by data-id
or through the root-call index with --root (and --arg for calls that
take an argument, given as JSON).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runState(rootOpts, id, rootCall, rootArg, dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "cache.db", "snapshot database path")
	cmd.Flags().StringVar(&rootCall, "root", "", "resolve the record through this root call")
	cmd.Flags().StringVar(&rootArg, "arg", "", "root call argument as JSON")
	return cmd
}

func runState(opts *RootOptions, id, rootCall, rootArg, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if (id == "") == (rootCall == "") {
		formatter.Error(ErrCodeGeneric, "exactly one of <data-id> or --root is required", nil)
		return NewExitError(ExitCommandError, "invalid arguments")
	}
	if !fileExists(dbPath) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("snapshot database not found: %s", dbPath), nil)
		return NewExitError(ExitCommandError, "snapshot database not found")
	}

	db, err := store.OpenSnapshotDB(dbPath)
	if err != nil {
		formatter.Error(ErrCodeSnapshotDB, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening snapshot database", err)
	}
	defer db.Close()

	sn, err := db.Load(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeSnapshotDB, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading snapshot", err)
	}

	if rootCall != "" {
		id, err = resolveRootCall(sn, rootCall, rootArg)
		if err != nil {
			formatter.Error(ErrCodeNoSuchState, err.Error(), nil)
			return WrapExitError(ExitFailure, "root call not cached", err)
		}
		formatter.VerboseLog("Root call %q resolved to %s", rootCall, id)
	}

	if sn.State(id) == store.StateUnknown {
		formatter.Error(ErrCodeNoSuchState, fmt.Sprintf("record %q is not cached", id), nil)
		return NewExitError(ExitFailure, "record not cached")
	}

	report, err := buildRecordReport(sn, id)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "reading record", err)
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return formatter.Success(formatRecord(report))
}

// resolveRootCall resolves (call, arg JSON) through the snapshot's
// root-call index using the same canonical key as the writer.
func resolveRootCall(sn *store.Snapshot, call, argJSON string) (string, error) {
	arg := ""
	if argJSON != "" {
		v, err := payload.Decode([]byte(argJSON))
		if err != nil {
			return "", fmt.Errorf("parsing --arg: %w", err)
		}
		arg, err = store.SerializeCallArg(v)
		if err != nil {
			return "", fmt.Errorf("serializing --arg: %w", err)
		}
	}
	for _, entry := range sn.RootCalls() {
		if entry.Call == call && entry.Arg == arg {
			return entry.ID, nil
		}
	}
	return "", fmt.Errorf("no cached result for root call %q with argument %q", call, arg)
}

func buildRecordReport(sn *store.Snapshot, id string) (*RecordReport, error) {
	report := &RecordReport{
		ID:    id,
		State: sn.State(id).String(),
	}
	report.Type, _ = sn.Type(id)

	names := sn.FieldNames(id)
	if len(names) > 0 {
		report.Fields = make(map[string]any, len(names))
	}
	for _, name := range names {
		if target, ok := sn.LinkedID(id, name); ok {
			report.Fields[name] = map[string]any{"__ref": target}
			continue
		}
		if targets, ok := sn.LinkedIDs(id, name); ok {
			report.Fields[name] = map[string]any{"__refs": targets}
			continue
		}
		v, ok := sn.Field(id, name)
		if !ok {
			continue
		}
		raw, err := payload.MarshalCanonical(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		report.Fields[name] = json.RawMessage(raw)
	}
	return report, nil
}

func formatRecord(r *RecordReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:    %s\n", r.ID)
	fmt.Fprintf(&b, "state: %s", r.State)
	if r.Type != "" {
		fmt.Fprintf(&b, "\ntype:  %s", r.Type)
	}
	if len(r.Fields) > 0 {
		b.WriteString("\nfields:")
		for _, name := range sortedKeys(r.Fields) {
			switch v := r.Fields[name].(type) {
			case json.RawMessage:
				fmt.Fprintf(&b, "\n  %s = %s", name, string(v))
			case map[string]any:
				if target, ok := v["__ref"]; ok {
					fmt.Fprintf(&b, "\n  %s -> %v", name, target)
				} else {
					fmt.Fprintf(&b, "\n  %s -> %v", name, v["__refs"])
				}
			}
		}
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
