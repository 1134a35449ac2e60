//go:build acpi_ec

package ec

// DefaultPath is the character device created by the acpi_ec module.
const DefaultPath = "/dev/ec"
