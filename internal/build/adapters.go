package build

import (
	"context"

	"github.com/cochaviz/pwakit/internal/precache"
)

// Bundler opens bundle sessions for custom service-worker source.
type Bundler interface {
	Open(ctx context.Context, request BundleRequest) (BundleSession, error)
}

// BundleSession is an open bundle. Close must be called exactly once, whether
// or not Write succeeded.
type BundleSession interface {
	Write(ctx context.Context) error
	Close() error
}

// ResultLogger reports a finished precache engine run.
type ResultLogger interface {
	LogResult(op string, result precache.BuildResult)
}
