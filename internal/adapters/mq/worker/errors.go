package worker

import "errors"

// ErrPermanent marks an Updater error that retrying cannot fix, such as a
// bet that no longer exists.
var ErrPermanent = errors.New("permanent failure")
