package build

import (
	"sync"

	"github.com/cochaviz/pwakit/internal/precache"
)

// LazyEngine returns a loader that calls load on first use only and returns
// the same engine afterwards.
func LazyEngine(load func() precache.Engine) func() precache.Engine {
	return sync.OnceValue(load)
}
