package pipeline

import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"sync/atomic"

	_ "github.com/chai2010/webp"
	_ "github.com/gen2brain/avif"
)

var (
	setupOnce sync.Once
	ready     atomic.Bool
)

// Setup marks the codecs ready for decoding. The WebP and AVIF packages
// register their decoders from init, so importing this package is enough to
// make them known to image.Decode; Setup is the one-time gate that Decode
// checks. Later calls are no-ops. Decoding fails with ErrCodecsNotReady until
// Setup has been called.
func Setup() {
	setupOnce.Do(func() {
		ready.Store(true)
	})
}

// Ready reports whether Setup has completed.
func Ready() bool {
	return ready.Load()
}
