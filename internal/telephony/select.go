package telephony

import "voicecall-engine/internal/call"

// Select chooses the adapter variant for the current conditions. The
// platform-integrated variant needs a bridge and is avoided once microphone
// permission is known-denied, because its answer UI cannot host the
// settings-remediation flow; everything else falls back to the native variant.
func Select(system, native call.Adapter, permission PermissionStatus, bridgeAvailable bool) call.Adapter {
	if bridgeAvailable && system != nil && permission != PermissionDenied {
		return system
	}
	return native
}
