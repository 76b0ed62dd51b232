package server

import (
	"github.com/jrsteele09/go-iam-server/applications"
	"github.com/jrsteele09/go-iam-server/internal/config"
)

// newApplicationFinder puts the expiring LRU in front of the application store.
func newApplicationFinder(cfg config.ConsentConfig, finder applications.Finder) applications.Finder {
	size := cfg.GetApplicationCacheSize()
	if size <= 0 {
		return finder
	}
	return applications.NewCachedFinder(finder, size, cfg.GetApplicationCacheTTL())
}
