// pkg/portal/util.go
package portal

import (
	"math"
	"time"
)

// timeFromUnixFloat converts CDP's fractional unix-seconds expiry into
// a time.Time.
func timeFromUnixFloat(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}
