package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/potluck/internal/config"
	"github.com/dshills/potluck/internal/editor"
	"github.com/dshills/potluck/internal/logging"
)

// env is the state shared by every command after the root pre-run.
type env struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "potluck",
		Short:         "Annotate recipes with live ingredients, scaling and timers",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "path to a TOML or YAML configuration file")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newDemoCmd(e),
		newViewCmd(e),
		newPluginsCmd(e),
		newQueryCmd(),
	)
	return root
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Logging.Level = e.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	e.cfg = cfg
	e.log = logging.NewLogger(lc)
	logging.SetDefault(e.log)
	return nil
}

// openEditor creates an editor holding the snapshot at path, or the demo
// recipe when path is empty.
func (e *env) openEditor(path string, stdin io.Reader) (*editor.Editor, error) {
	ed, err := editor.New(e.cfg, editor.WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	if path == "" {
		if err := loadDemo(ed); err != nil {
			ed.Close()
			return nil, err
		}
		return ed, nil
	}

	snap, err := readSnapshot(path, stdin)
	if err != nil {
		ed.Close()
		return nil, err
	}
	if err := ed.Restore(snap); err != nil {
		ed.Close()
		return nil, fmt.Errorf("restore %s: %w", path, err)
	}
	return ed, nil
}

// readSnapshot decodes a snapshot file, choosing the encoding by extension.
// "-" reads JSON from stdin.
func readSnapshot(path string, stdin io.Reader) (editor.Snapshot, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return editor.Snapshot{}, err
	}
	return editor.DecodeSnapshot(data, snapshotFormat(path))
}

func snapshotFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
