/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import "time"

// EpochNow returns the current wall-clock time as fractional epoch seconds.
func EpochNow() float64 {
	return Epoch(time.Now().UTC())
}

// Epoch converts a time.Time to fractional epoch seconds.
func Epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpoch converts fractional epoch seconds back to a time.Time.
func FromEpoch(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second))).UTC()
}

// FormatRFC3339 formats the given time in RFC3339.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
