package executor

import "time"

// dotNetEpochOffsetSeconds is the number of seconds between 0001-01-01
// 00:00:00 UTC (the .NET DateTime epoch) and the Unix epoch
// (1970-01-01 00:00:00 UTC).
const dotNetEpochOffsetSeconds = 62135596800

// dotNetTicksPerSecond is the number of 100-nanosecond ticks in one second.
const dotNetTicksPerSecond = 10_000_000

// dotNetTicks converts t to .NET-style ticks: 100-nanosecond intervals since
// year 1, the encoding the WOPI wire contract uses for X-WOPI-TimeStamp
// (spec.md §4.5 "ticks since year 1, invariant culture").
func dotNetTicks(t time.Time) int64 {
	unixSeconds := t.Unix()
	nanoRemainder := int64(t.Nanosecond())

	totalSeconds := unixSeconds + dotNetEpochOffsetSeconds

	return totalSeconds*dotNetTicksPerSecond + nanoRemainder/100
}
