// Command godb is the REPL / batch driver: it reads SQL from a terminal or
// a pipe, hands each statement to internal/engine, and prints the result
// (spec.md §6 "CLI / driver (collaborator)").
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"goDB/internal/config"
	"goDB/internal/dblog"
	"goDB/internal/dbms"
	"goDB/internal/engine"
)

func main() {
	root := &cobra.Command{
		Use:           "godb",
		Short:         "GoDB: a disk-backed relational database engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg := config.Register(root)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(cfg)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "godb:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := dblog.New(dblog.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})

	if cfg.Init {
		if err := os.RemoveAll(cfg.BaseDir); err != nil {
			return fmt.Errorf("wipe data directory %s: %w", cfg.BaseDir, err)
		}
	}

	mgr, err := dbms.NewManager(cfg.BaseDir, cfg.CacheCapacity, log)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	eng := engine.New(mgr, log)

	if cfg.Database != "" {
		if err := mgr.UseDatabase(cfg.Database); err != nil {
			return fmt.Errorf("select database %s: %w", cfg.Database, err)
		}
	}

	if cfg.WantsLoad() {
		n, err := loadCSV(eng, cfg.Table, cfg.File)
		if err != nil {
			return fmt.Errorf("load %s into %s: %w", cfg.File, cfg.Table, err)
		}
		fmt.Printf("%d row(s) loaded into %s\n", n, cfg.Table)
		return mgr.Close()
	}

	interactive := !cfg.Batch && isatty.IsTerminal(os.Stdin.Fd())
	if interactive {
		runREPL(eng)
	} else {
		runBatch(eng)
	}
	return mgr.Close()
}
