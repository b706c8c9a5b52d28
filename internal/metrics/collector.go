package metrics

import (
	"time"

	"clip-library/internal/logging"
)

// StatsProvider interface for collecting library stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current library statistics
type Stats struct {
	ClipsBySource     map[string]int
	TotalStarred      int
	TotalTags         int
	TotalCollections  int
	TotalSmartFolders int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	total := 0
	for source, n := range stats.ClipsBySource {
		LibraryClipsTotal.WithLabelValues(source).Set(float64(n))
		total += n
	}
	LibraryStarredTotal.Set(float64(stats.TotalStarred))
	LibraryTagsTotal.Set(float64(stats.TotalTags))
	LibraryCollectionsTotal.Set(float64(stats.TotalCollections))
	LibrarySmartFoldersTotal.Set(float64(stats.TotalSmartFolders))

	logging.Debug("Metrics collected: clips=%d, starred=%d, tags=%d, collections=%d",
		total, stats.TotalStarred, stats.TotalTags, stats.TotalCollections)
}
