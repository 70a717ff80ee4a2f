// Package config binds the driver's command-line flags to the values the
// rest of GoDB needs to start: where the data directory lives, how big the
// shared page cache is, and how the process should log.
package config

import (
	"github.com/spf13/cobra"

	"goDB/internal/cache"
)

// Config holds everything cmd/godb needs to boot an Engine.
type Config struct {
	BaseDir       string
	CacheCapacity int
	LogLevel      string
	Pretty        bool

	Init     bool
	Database string
	Table    string
	File     string
	Batch    bool
}

// Register attaches every flag to cmd and returns the Config they'll
// populate once cmd.Execute() parses os.Args.
func Register(cmd *cobra.Command) *Config {
	c := &Config{}
	flags := cmd.Flags()
	flags.StringVar(&c.BaseDir, "base-dir", "./data", "directory holding every database")
	flags.IntVar(&c.CacheCapacity, "cache-capacity", cache.DefaultCapacity, "page cache capacity, in pages")
	flags.StringVar(&c.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&c.Pretty, "pretty", false, "pretty-print logs for an interactive terminal")

	flags.BoolVar(&c.Init, "init", false, "wipe the data directory before starting")
	flags.StringVar(&c.Database, "database", "", "database to select on startup")
	flags.StringVar(&c.Table, "table", "", "table to bulk-load --file into, then exit")
	flags.StringVar(&c.File, "file", "", "CSV file to bulk-load into --table, then exit")
	flags.BoolVar(&c.Batch, "batch", false, "read one statement per line from stdin instead of an interactive REPL")
	return c
}

// WantsLoad reports whether the flags ask for a one-shot CSV bulk load
// instead of a REPL/batch session.
func (c *Config) WantsLoad() bool {
	return c.Database != "" && c.Table != "" && c.File != ""
}
