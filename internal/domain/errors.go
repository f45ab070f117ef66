package domain

import "errors"

var (
	// ErrInvalidFeatures marks a feature set that is incomplete or holds a fill value.
	ErrInvalidFeatures = errors.New("invalid feature vector")

	// ErrNoValidData means no date in the lookback window had all features available.
	ErrNoValidData = errors.New("no valid data in lookback window")

	// ErrFetchFailed means the upstream request failed after all attempts.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrClassifier covers malformed classifier input and inference failures.
	ErrClassifier = errors.New("classifier error")

	// ErrStoreWrite means a snapshot could not be durably written.
	ErrStoreWrite = errors.New("store write failed")

	// ErrNotFound is returned by store lookups for slugs never written.
	ErrNotFound = errors.New("snapshot not found")

	// ErrBusy is returned to manual-trigger callers while a refresh is running.
	ErrBusy = errors.New("refresh already running")
)
