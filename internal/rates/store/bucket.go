package store

import "time"

const bucketWindow = time.Hour

// continuesBucket reports whether a tick observed at t still belongs to the
// rolling hour bucket that started at hourStart. A tick before the bucket
// start is bucket-incompatible and forces a reset, same as one past the end
// of the window.
func continuesBucket(hourStart, t time.Time) bool {
	if t.Before(hourStart) {
		return false
	}
	return t.Sub(hourStart) < bucketWindow
}
