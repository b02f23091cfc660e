package utils

import "github.com/denisbrodbeck/machineid"

// HWID is a stable, app-scoped device identifier. Falls back to a fixed
// value when the platform does not expose a machine id.
var HWID = func() string {
	id, err := machineid.ProtectedID("pixsync")
	if err != nil {
		return "unknown-device"
	}
	return id
}()
