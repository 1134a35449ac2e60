//go:build linux

package ecsys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Interface is the kernel mechanism exposing the EC address space.
type Interface int

const (
	Unsupported Interface = iota // no EC file exposed
	ECSys                        // debugfs file from the in-tree ec_sys module
	ACPIEC                       // /dev/ec from the acpi_ec module
	Both                         // both present; ec_sys is preferred
)

func (i Interface) String() string {
	switch i {
	case ECSys:
		return "ec_sys"
	case ACPIEC:
		return "acpi_ec"
	case Both:
		return "ec_sys+acpi_ec"
	default:
		return "unsupported"
	}
}

// Paths relative to the filesystem root.
const (
	ECSysFile     = "sys/kernel/debug/ec/ec0/io"
	ECSysWriteArg = "sys/module/ec_sys/parameters/write_support"
	ACPIECFile    = "dev/ec"
)

// Result is what Detect found.
type Result struct {
	Interface Interface
	// Path is the file to open, empty when Unsupported.
	Path string
	// Writable reports that the chosen file accepts writes for this process.
	Writable bool
	// Detail is a one-line human description.
	Detail string
}

// Detect inspects the running system.
func Detect() (Result, error) { return DetectIn("/") }

// DetectIn inspects a filesystem rooted at root, which tests point at a temp dir.
func DetectIn(root string) (Result, error) {
	ecsys := filepath.Join(root, ECSysFile)
	acpi := filepath.Join(root, ACPIECFile)

	hasECSys, err := exists(ecsys)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", ecsys, err)
	}
	hasACPI, err := exists(acpi)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", acpi, err)
	}

	var res Result
	switch {
	case hasECSys && hasACPI:
		res = Result{Interface: Both, Path: ecsys}
	case hasECSys:
		res = Result{Interface: ECSys, Path: ecsys}
	case hasACPI:
		res = Result{Interface: ACPIEC, Path: acpi}
	default:
		return Result{Interface: Unsupported, Detail: "no EC io file found"}, nil
	}

	res.Writable = unix.Access(res.Path, unix.W_OK) == nil
	if res.Interface != ACPIEC && !writeSupport(root) {
		res.Writable = false
	}
	res.Detail = fmt.Sprintf("%s at %s (writable=%t)", res.Interface, res.Path, res.Writable)
	return res, nil
}

// Hint returns setup advice for a failed open of path.
func Hint(path string) string {
	switch {
	case strings.HasSuffix(path, "/"+ECSysFile):
		return "run as root and load the module with: modprobe ec_sys write_support=1"
	case strings.HasSuffix(path, "/"+ACPIECFile):
		return "run as root and install/load the acpi_ec module (it creates /dev/ec)"
	default:
		return "run as root and make sure the EC io file exists and is writable"
	}
}

func exists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if errors.Is(err, os.ErrPermission) {
		// debugfs is root-only; treat as present and let open report it
		return true, nil
	}
	return false, err
}

// writeSupport reads the ec_sys module parameter. Without it the io file
// silently drops writes on some kernels.
func writeSupport(root string) bool {
	b, err := os.ReadFile(filepath.Join(root, ECSysWriteArg))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(b)) == "Y"
}
