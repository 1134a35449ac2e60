// Package ec reads and writes single bytes in the embedded controller's
// register space.
//
// The register space is exposed by the kernel as a 256-byte file. Two kernel
// mechanisms provide it and the path is chosen at build time:
//
//   - ec_sys (default): /sys/kernel/debug/ec/ec0/io, loaded with
//     "modprobe ec_sys write_support=1".
//   - acpi_ec (build tag acpi_ec): /dev/ec, from the out-of-tree acpi_ec module,
//     for kernels where ec_sys is unavailable or locked down.
//
// Only the offsets in registers.go are ever touched. File keeps a single
// descriptor open and serialises every pread/pwrite through a mutex. Memory is
// an in-process stand-in with a write journal and fault injection.
//
// Every failure wraps ErrRegisterIO and is reported as a *RegisterError, so
// callers can tell an EC problem from anything else with errors.Is.
package ec
