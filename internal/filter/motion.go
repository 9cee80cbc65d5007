package filter

import (
	"context"
	"image"
	"sync"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/corona10/goimagehash"
	"github.com/pkg/errors"
)

// DefaultDim is the hash size; it should be a power of 2.
const DefaultDim = 8

// Motion returns a filter function that rejects images whose ExtPerceptionHash is closer
// than minDist to the last image it passed. The first image always passes.
func Motion(dim, minDist int) FilterFunc {
	var (
		mu       sync.Mutex
		lastHash *goimagehash.ExtImageHash
	)

	return func(ctx context.Context, img image.Image) (bool, error) {
		log := logger.Entry(ctx)

		hash, err := goimagehash.ExtPerceptionHash(img, dim, dim)
		if err != nil {
			return false, errors.Wrap(err, "goimagehash.ExtPerceptionHash")
		}

		mu.Lock()
		defer mu.Unlock()
		if lastHash == nil {
			lastHash = hash
			return true, nil
		}
		distance, err := lastHash.Distance(hash)
		if err != nil {
			return false, errors.Wrap(err, "hash.Distance")
		}
		ok := distance >= minDist
		if ok {
			lastHash = hash
		} else {
			log.Tracef("ExtPerceptionHash distance is %d, threshold is %d", distance, minDist)
		}
		return ok, nil
	}
}
