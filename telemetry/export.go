package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/laststand/neural"
)

// ExportGenotype writes net as <dir>/<name>.dot for inspection with Graphviz.
// Failures are logged and dropped.
func ExportGenotype(dir, name string, net neural.Network) {
	if dir == "" {
		return
	}
	path := filepath.Join(dir, name+".dot")
	if err := writeDotFile(path, net); err != nil {
		slog.Warn("genotype_export_failed", "path", path, "error", err)
	}
}

func writeDotFile(path string, net neural.Network) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing dot file: %w", cerr)
		}
	}()
	if err := net.WriteDot(f); err != nil {
		return fmt.Errorf("writing dot graph: %w", err)
	}
	return nil
}
