// SPDX-License-Identifier: MPL-2.0

package supervisor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Install copies the currently running executable to <targetDir>/dlc,
// creating targetDir if needed. It is idempotent: if the destination already
// exists, Install is a no-op, per §4.2/§6/TESTABLE PROPERTY 7 ("running it
// twice against the same directory is a no-op on the second invocation").
func Install(selfPath, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("supervisor: create target directory %s: %w", targetDir, err)
	}

	dest := filepath.Join(targetDir, "dlc")
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("supervisor: stat destination %s: %w", dest, err)
	}

	src, err := os.Open(selfPath)
	if err != nil {
		return fmt.Errorf("supervisor: open own executable %s: %w", selfPath, err)
	}
	defer src.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("supervisor: create temp binary %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("supervisor: copy binary: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("supervisor: close temp binary: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("supervisor: rename temp binary into place: %w", err)
	}
	return nil
}
