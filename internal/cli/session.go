package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"devkit/internal/catalog"
	"devkit/internal/config"
	"devkit/internal/logx"
	"devkit/internal/orchestrator"
	"devkit/internal/pathenv"
	"devkit/internal/paths"
	"devkit/internal/runner"
	"devkit/internal/tools"
	"devkit/internal/tui"
)

// session bundles everything a command needs once settings are resolved.
type session struct {
	cfg     config.Config
	layout  paths.Layout
	catalog *catalog.Catalog
	engine  *tools.Engine
	logger  *zap.Logger
	logPath string
	console *tui.Console

	closers []io.Closer
}

// loadSettings resolves the data directory and the effective configuration,
// applying command-line overrides.
func loadSettings() (paths.Layout, config.Config, error) {
	layout, err := paths.Resolve(dataDir)
	if err != nil {
		return paths.Layout{}, config.Config{}, err
	}

	path, required := configFile, true
	if strings.TrimSpace(path) == "" {
		path, required = layout.ConfigFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return paths.Layout{}, config.Config{}, err
	}

	if jobs > 0 {
		cfg.Concurrency = jobs
	}
	if cmdTimeout > 0 {
		cfg.CommandTimeout = cmdTimeout
	}
	if strings.TrimSpace(resultsFile) != "" {
		cfg.ResultsFile = resultsFile
	}
	return layout.ApplyConfig(cfg), cfg, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	layout, cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	if findings := cfg.Validate(); config.HasErrors(findings) {
		var errs []error
		for _, v := range findings {
			if v.Level == config.LevelError {
				errs = append(errs, errors.New(v.Message))
			}
		}
		return nil, fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}

	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		layout:  layout,
		console: tui.NewConsole(cmd.ErrOrStderr(), quiet),
	}

	logger, closer, logPath, err := logx.New(layout.LogsDir, cfg.LogLevel)
	if err != nil {
		s.console.Warnf("file logging disabled: %v", err)
		logger = zap.NewNop()
	} else {
		s.closers = append(s.closers, closer)
	}
	s.logger = logger
	s.logPath = logPath

	cat, err := catalog.Load(cfg.CatalogPaths(catalogFiles...), cfg.BuiltinCatalog)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.catalog = cat

	persister, err := pathenv.DefaultPersister()
	if err != nil {
		s.console.Warnf("PATH changes will not persist: %v", err)
		persister = nil
	}

	s.engine = &tools.Engine{
		Runner:    runner.CmdRunner{},
		Paths:     pathenv.NewSystemStore(persister),
		History:   pathenv.NewHistory(layout.HistoryFile),
		Processes: tools.SystemProcesses{},
		Policy: tools.Policy{
			PassThreshold:   cfg.PassThreshold,
			CommandTimeout:  cfg.CommandTimeout,
			VersionTimeout:  cfg.VersionTimeout,
			PackageManagers: cfg.PackageManagers,
			Shell:           cfg.Shell,
			DataDir:         layout.DataDir,
			DownloadsDir:    layout.DownloadsDir,
		},
		Logger: logger.Named("tools"),
	}

	logger.Info("session opened",
		zap.String("data_dir", layout.DataDir),
		zap.String("config", cfg.Source()),
		zap.Int("tools", cat.Len()),
	)
	return s, nil
}

func (s *session) orchestrator() *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Catalog:     s.catalog,
		Executor:    s.engine,
		Concurrency: s.cfg.Concurrency,
		Logger:      s.logger.Named("orchestrator"),
	}
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
