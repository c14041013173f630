package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnyzak/reqloop/internal/export"
	"github.com/funnyzak/reqloop/internal/storage"
	"github.com/funnyzak/reqloop/pkg/request"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs as json, csv or txt",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, cmd := range []*cobra.Command{historyCmd, exportCmd} {
		cmd.Flags().String("session", "", "Only runs of this session id")
		cmd.Flags().String("loop", "", "Only runs of this loop id")
		cmd.Flags().String("label", "", "Only runs with this label (success, error, info)")
		cmd.Flags().String("method", "", "Only runs with this HTTP method")
		cmd.Flags().String("search", "", "Full text search over command, url and output")
	}
	historyCmd.Flags().Int("limit", 20, "Maximum runs to list")
	historyCmd.Flags().Int("offset", 0, "Runs to skip")

	exportCmd.Flags().StringP("format", "f", "json", "Export format (json, csv, txt)")
	exportCmd.Flags().String("out", "", "Output file (default: reqloop_runs_<unix>.<ext>, - for stdout)")
}

func historyFilters(cmd *cobra.Command) storage.ListOptions {
	session, _ := cmd.Flags().GetString("session")
	loopID, _ := cmd.Flags().GetString("loop")
	label, _ := cmd.Flags().GetString("label")
	method, _ := cmd.Flags().GetString("method")
	search, _ := cmd.Flags().GetString("search")
	return storage.ListOptions{
		Search:  search,
		Session: session,
		LoopID:  loopID,
		Label:   label,
		Method:  method,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireStore()
	if err != nil {
		return err
	}

	opts := historyFilters(cmd)
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Offset, _ = cmd.Flags().GetInt("offset")
	runs, total, err := store.ListRuns(opts)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	return a.printer.PrintRuns(runs, total)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	_, ext, err := export.DescribeFormat(format)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireStore()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = fmt.Sprintf("reqloop_runs_%d.%s", time.Now().Unix(), ext)
	}

	w := cmd.OutOrStdout()
	if out != "-" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer file.Close()
		w = file
	}

	opts := historyFilters(cmd)
	var iterErr error
	iter := func(yield func(*request.RunRecord) bool) {
		iterErr = store.IterateRuns(opts, yield)
	}
	if _, _, err := export.StreamRuns(w, iter, format); err != nil {
		return fmt.Errorf("export runs: %w", err)
	}
	if iterErr != nil {
		return fmt.Errorf("read runs: %w", iterErr)
	}
	if out != "-" {
		a.log.Info("Runs exported", "path", out, "format", ext)
	}
	return nil
}
