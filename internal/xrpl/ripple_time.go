package xrpl

import "time"

// The ripple epoch is 2000-01-01T00:00:00Z; ledger close times and tx dates
// are seconds since then.
const rippleEpochOffset int64 = 946684800

// RippleTimeToUTC converts seconds since the ripple epoch to a UTC time.
func RippleTimeToUTC(rippleSeconds int64) time.Time {
	return time.Unix(rippleSeconds+rippleEpochOffset, 0).UTC()
}

// UTCToRippleTime converts a time to seconds since the ripple epoch.
func UTCToRippleTime(t time.Time) int64 {
	return t.Unix() - rippleEpochOffset
}
