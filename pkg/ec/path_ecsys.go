//go:build !acpi_ec

package ec

// DefaultPath is the ec_sys debugfs file (needs ec_sys loaded with write_support=1).
const DefaultPath = "/sys/kernel/debug/ec/ec0/io"
