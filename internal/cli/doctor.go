package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"devkit/internal/catalog"
	"devkit/internal/config"
	"devkit/internal/pathenv"
	"devkit/internal/paths"
	"devkit/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment devkit depends on",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	layout, cfg, cfgErr := loadSettings()
	if cfgErr != nil && layout.DataDir == "" {
		layout, _ = paths.Resolve(dataDir)
	}

	var checks []healthCheck
	checks = append(checks, checkDataDir(layout))
	checks = append(checks, checkConfig(cfg, cfgErr))
	if cfgErr != nil {
		return writeDoctorResult(cmd, layout.DataDir, checks)
	}

	checks = append(checks, checkCatalog(cfg))

	engine := &tools.Engine{Policy: tools.Policy{PackageManagers: cfg.PackageManagers}}
	checks = append(checks, checkManagers(engine.Managers()))

	persister, err := pathenv.DefaultPersister()
	checks = append(checks, checkPersistence(persister, err))

	return writeDoctorResult(cmd, layout.DataDir, checks)
}

func checkDataDir(layout paths.Layout) healthCheck {
	if layout.DataDir == "" {
		return healthCheck{Name: "Data", Status: "error", Summary: "could not resolve data directory"}
	}
	exists, err := paths.DirExists(layout.DataDir)
	if err != nil {
		return healthCheck{Name: "Data", Status: "error", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{Name: "Data", Status: "warning", Summary: layout.DataDir + " (not created yet)"}
	}
	return healthCheck{Name: "Data", Status: "ok", Summary: layout.DataDir}
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	source := cfg.Source()
	if source == "" {
		source = "defaults"
	}

	var warnings, errs []string
	for _, v := range cfg.Validate() {
		switch v.Level {
		case config.LevelWarning:
			warnings = append(warnings, v.Message)
		case config.LevelError:
			errs = append(errs, v.Message)
		}
	}
	if len(errs) > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %s", source, joinComma(errs))}
	}
	if len(warnings) > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %s", source, joinComma(warnings))}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: source}
}

func checkCatalog(cfg config.Config) healthCheck {
	cat, err := catalog.Load(cfg.CatalogPaths(catalogFiles...), cfg.BuiltinCatalog)
	if err != nil {
		return healthCheck{Name: "Catalog", Status: "error", Summary: err.Error()}
	}
	if cat.Len() == 0 {
		return healthCheck{Name: "Catalog", Status: "warning", Summary: "no tools defined"}
	}
	return healthCheck{
		Name:    "Catalog",
		Status:  "ok",
		Summary: fmt.Sprintf("%d tools, %d categories", cat.Len(), len(cat.CategoryNames())),
	}
}

func checkManagers(infos []tools.ManagerInfo) healthCheck {
	var found, missing []string
	for _, info := range infos {
		if info.Available {
			found = append(found, info.Name)
		} else {
			missing = append(missing, info.Name)
		}
	}
	switch {
	case len(found) == 0:
		return healthCheck{Name: "Managers", Status: "error", Summary: "none of " + joinComma(missing) + " found"}
	case len(missing) > 0:
		return healthCheck{Name: "Managers", Status: "warning", Summary: fmt.Sprintf("%s (missing %s)", joinComma(found), joinComma(missing))}
	}
	return healthCheck{Name: "Managers", Status: "ok", Summary: joinComma(found)}
}

func checkPersistence(p pathenv.Persister, err error) healthCheck {
	if err != nil {
		return healthCheck{Name: "PATH", Status: "warning", Summary: "changes stay process-local: " + err.Error()}
	}
	if rc, ok := p.(pathenv.RCFilePersister); ok {
		managed, err := rc.Managed()
		if err != nil {
			return healthCheck{Name: "PATH", Status: "warning", Summary: err.Error()}
		}
		return healthCheck{Name: "PATH", Status: "ok", Summary: fmt.Sprintf("managed block in %s (%d entries)", rc.Path, len(managed))}
	}
	return healthCheck{Name: "PATH", Status: "ok", Summary: "user environment"}
}

func writeDoctorResult(cmd *cobra.Command, dataRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return doctorError(checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("DEVKIT HEALTH:")+" "+dataRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-10s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return doctorError(checks)
}

func doctorError(checks []healthCheck) error {
	var failed []string
	for _, c := range checks {
		if c.Status == "error" {
			failed = append(failed, strings.ToLower(c.Name))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("doctor found problems with %s", joinComma(failed))
	}
	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
