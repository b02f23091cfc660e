package mediasdk

import (
	"fmt"
	"runtime"
)

const (
	HeaderUserAgent        = "User-Agent"
	HeaderPixsyncVersion   = "X-Pixsync-Version"
	HeaderPixsyncDeviceId  = "X-Pixsync-Device-Id"
	HeaderPixsyncRequestId = "X-Pixsync-Request-Id"
)

// UserAgent sent on every request, e.g. `PixSync/0.1.0 (abc123; linux; amd64)`.
func userAgent(version, revision string) string {
	return fmt.Sprintf("PixSync/%s (%s; %s; %s)", version, revision, runtime.GOOS, runtime.GOARCH)
}
