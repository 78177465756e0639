// Package msgs defines the status messages a running bootloader publishes
// for remote monitoring.
package msgs
