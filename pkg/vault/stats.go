package vault

import "go.uber.org/atomic"

// Stats counts what a Factory has done since it was created.
type Stats struct {
	Loads     int64 // files parsed from disk or resources
	Reloads   int64
	Saves     int64
	CacheHits int64 // Create calls served from the cache
}

type counters struct {
	loads     atomic.Int64
	reloads   atomic.Int64
	saves     atomic.Int64
	cacheHits atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Loads:     c.loads.Load(),
		Reloads:   c.reloads.Load(),
		Saves:     c.saves.Load(),
		CacheHits: c.cacheHits.Load(),
	}
}
