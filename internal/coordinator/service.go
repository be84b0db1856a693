package coordinator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikete/workgraph/internal/workspace"
)

// InstallService writes a systemd user unit that runs the coordinator for
// the given workgraph directory. Settings come from config.toml, so the
// unit's ExecStart is just the coordinator command. Returns the unit path.
func InstallService(dir string) (string, error) {
	workdir, err := filepath.Abs(dir)
	if err != nil {
		workdir = dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating wg binary: %w", err)
	}

	unit := fmt.Sprintf(`[Unit]
Description=Workgraph Coordinator
After=network.target

[Service]
Type=simple
WorkingDirectory=%s
ExecStart=%s coordinator --dir %s
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`, workdir, exe, workdir)

	home, err := workspace.HomeDir()
	if err != nil {
		return "", err
	}
	serviceDir := filepath.Join(home, ".config", "systemd", "user")
	if err := os.MkdirAll(serviceDir, 0755); err != nil {
		return "", fmt.Errorf("creating systemd user directory: %w", err)
	}
	unitPath := filepath.Join(serviceDir, "wg-coordinator.service")
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return "", fmt.Errorf("writing service unit: %w", err)
	}
	return unitPath, nil
}
