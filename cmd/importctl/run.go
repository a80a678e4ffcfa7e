package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/app"
	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

type runOptions struct {
	mappingFile string
	failedOut   string
	progress    bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <kind> <file.csv>",
		Short: "Import a CSV file and wait for the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, importer.ParseKind(args[0]), args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.mappingFile, "mapping", "", "JSON file mapping CSV headers to field aliases (required)")
	cmd.Flags().StringVar(&opts.failedOut, "failed-out", "", "Write rows that failed to import to this CSV file")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print progress to stderr")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

func runImport(cmd *cobra.Command, kind importer.Kind, path string, opts runOptions) error {
	form, err := os.ReadFile(opts.mappingFile)
	if err != nil {
		return fmt.Errorf("read mapping: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		file.Close()
		return err
	}

	ctx := auth.WithPrincipal(cmd.Context(), auth.System())
	a, err := app.New(ctx, cfg)
	if err != nil {
		file.Close()
		return err
	}
	defer a.Close()

	importID, err := a.Imports.StartImport(ctx, kind, filepath.Base(path), file, info.Size(), form)
	if err != nil {
		return describe(err)
	}

	if opts.progress {
		if ch, err := a.Imports.SubscribeProgress(ctx, importID); err == nil {
			go printProgress(cmd.ErrOrStderr(), ch)
		}
	}

	result, err := a.Imports.GetImportResult(ctx, importID)
	if err != nil {
		return err
	}
	// History is written after the result is published.
	if err := a.Imports.WaitForImports(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if opts.failedOut != "" && result.Failed() > 0 {
		if err := writeFailedRows(opts.failedOut, result); err != nil {
			return err
		}
	}

	if result.Error != "" {
		return fmt.Errorf("%s", core.FormatUserError(fmt.Errorf("%s", result.Error)))
	}
	return nil
}

// describe adds the validation messages to a rejected mapping.
func describe(err error) error {
	var vErr *core.ValidationFailedError
	if errors.As(err, &vErr) && len(vErr.Messages) > 0 {
		return fmt.Errorf("%s:\n  %s", core.FormatUserError(err), strings.Join(vErr.Messages, "\n  "))
	}
	return fmt.Errorf("%s", core.FormatUserError(err))
}

func printProgress(w io.Writer, ch <-chan core.ImportProgress) {
	for p := range ch {
		fmt.Fprintf(w, "%s %3d%% rows=%d inserted=%d merged=%d skipped=%d failed=%d\n",
			p.Phase, p.Percent(), p.CurrentRow, p.Inserted, p.Merged, p.Skipped, p.Failed)
	}
}

func writeFailedRows(path string, result *core.ImportResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteFailedRows(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
