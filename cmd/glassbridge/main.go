package main

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DaanHessen/glass-bridge/internal/util"
)

var (
	version      = "0.1.0-alpha"
	seedAlphabet = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags override the environment loaded into util.Config.
type flags struct {
	seed    string
	dsn     string
	steps   string
	script  string
	pairs   int
	muted   bool
	level   string
	logFile string
}

func (f flags) apply(cfg *util.Config) {
	if f.seed != "" {
		cfg.SeedText = f.seed
	}
	if f.dsn != "" {
		cfg.DSN = f.dsn
	}
	if f.steps != "" {
		cfg.StepLog = f.steps
	}
	if f.script != "" {
		cfg.ScriptPath = f.script
	}
	if f.pairs > 0 {
		cfg.TotalPairs = f.pairs
	}
	if f.muted {
		cfg.Muted = true
	}
	if f.level != "" {
		cfg.LogLevel = f.level
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "glassbridge",
		Short:         "Glass bridge game and agent step log replayer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.seed, "seed", "", "Bridge seed string (random if omitted)")
	pf.StringVar(&f.dsn, "dsn", "", "PostgreSQL DSN for the audio cache (overrides DATABASE_URL)")
	pf.StringVar(&f.steps, "steps", "", "Agent step log to replay (JSON array)")
	pf.StringVar(&f.script, "script", "", "YAML narration script")
	pf.IntVar(&f.pairs, "pairs", 0, "Number of tile pairs")
	pf.BoolVar(&f.muted, "mute", false, "Start with narration muted")
	pf.StringVar(&f.level, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&f.logFile, "log-file", "", "Write logs to this file")

	load := func() (util.Config, error) {
		cfg, err := util.Load()
		if err != nil {
			return util.Config{}, err
		}
		f.apply(&cfg)
		return cfg, cfg.Validate()
	}
	root.AddCommand(
		newPlayCmd(load),
		newServeCmd(load),
		newMigrateCmd(load),
		newCacheCmd(load),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "glassbridge", version)
		},
	}
}

func generateSeed() (string, error) {
	buf := make([]byte, 10) // 16 characters base32
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(seedAlphabet.EncodeToString(buf)), nil
}
