package codesearch

import "time"

const (
	DefaultMaxResults   = 50
	DefaultWorkers      = 4
	DefaultRegexTimeout = 2 * time.Second
)
