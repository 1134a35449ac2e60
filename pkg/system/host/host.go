//go:build linux

package host

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrNotRoot is returned by RequireRoot for unprivileged processes.
var ErrNotRoot = errors.New("host: root access is required")

// RequireRoot fails unless the effective uid is 0.
func RequireRoot() error {
	if unix.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

const (
	productFile = "sys/class/dmi/id/product_name"
	vendorFile  = "sys/class/dmi/id/sys_vendor"
)

// Model is the DMI identity of the machine.
type Model struct {
	Vendor  string
	Product string
}

// String joins vendor and product, e.g. "HP OMEN by HP Laptop 16-b0xxx".
func (m Model) String() string {
	return strings.TrimSpace(m.Vendor + " " + m.Product)
}

// IsOmen reports whether the product name looks like an HP OMEN laptop.
func (m Model) IsOmen() bool {
	return strings.Contains(strings.ToUpper(m.Product), "OMEN")
}

// ReadModel reads the DMI identity under root ("/" on a real system).
// Missing files yield empty fields.
func ReadModel(root string) Model {
	return Model{
		Vendor:  readTrim(filepath.Join(root, vendorFile)),
		Product: readTrim(filepath.Join(root, productFile)),
	}
}

func readTrim(p string) string {
	b, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
