package build

import (
	"context"
	"errors"

	"github.com/cochaviz/pwakit/internal/logging"
)

// Bundle writes request.Outfile through a session opened on bundler. The
// session is released on every path; a release failure is logged and does not
// change the outcome.
func Bundle(ctx context.Context, bundler Bundler, request BundleRequest) error {
	logger := logging.Ensure(request.Logger).With("entry", request.Entry)

	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := bundler.Open(ctx, request)
	if err != nil {
		return asBundleError(request.Entry, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("release bundle session", "error", closeErr)
		}
	}()

	logger.Debug("bundling service worker", "outfile", request.Outfile, "plugins", len(request.Plugins))
	if err := session.Write(ctx); err != nil {
		return asBundleError(request.Entry, err)
	}
	return nil
}

func asBundleError(entry string, err error) error {
	if errors.Is(err, ErrBundle) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BundleError{Entry: entry, Err: err}
}
