// Package env holds the configuration shared by the commands.
package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// DeviceIDLen is the number of characters of the machine ID used as the
// device name.
const DeviceIDLen = 12

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// DeviceID derives the device name from the machine ID. The machine ID is
// hashed with the application name so the raw ID is not exposed on the
// broker. It returns fallback if the machine ID is unavailable.
func DeviceID(fallback string) string {
	id, err := machineid.ProtectedID("mwboot")
	if err != nil {
		glog.Warningf("machine id unavailable, using %q: %v", fallback, err)
		return fallback
	}
	if len(id) > DeviceIDLen {
		id = id[:DeviceIDLen]
	}
	return id
}
