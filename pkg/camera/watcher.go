package camera

import (
	"context"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/metrics"
)

// Watcher polls a frame source on a fixed interval purely to keep the
// "face currently visible" indicator current. It only reads detections
// and discards them; it never touches the template store or the quota
// tracker, so it can run alongside an enroll or verify call.
type Watcher struct {
	source   FrameSource
	detector face.Detector
	interval time.Duration
	onChange func(present bool)

	present bool
}

// NewWatcher creates a watcher. onChange may be nil; it is called on
// every presence transition.
func NewWatcher(source FrameSource, detector face.Detector, interval time.Duration, onChange func(bool)) *Watcher {
	return &Watcher{
		source:   source,
		detector: detector,
		interval: interval,
		onChange: onChange,
	}
}

// Run polls until ctx is cancelled, then releases the frame source.
// Cancellation is safe mid-cycle: a detection completing after cancel
// is discarded rather than applied.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		if err := w.source.Close(); err != nil {
			logging.Component("watcher").WithError(err).Warn("closing frame source")
		}
	}()

	log := logging.Component("watcher")
	log.Infof("presence watcher started (interval %s)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("presence watcher stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	frame, err := w.source.Capture(cctx)
	if err != nil {
		w.apply(ctx, false)
		return
	}

	detections, err := w.detector.Detect(cctx, frame)
	if err != nil {
		w.apply(ctx, false)
		return
	}
	w.apply(ctx, len(detections) > 0)
}

// apply records a presence reading unless the watcher was cancelled
// while the detection was in flight.
func (w *Watcher) apply(ctx context.Context, present bool) {
	if ctx.Err() != nil {
		return
	}

	if present {
		metrics.FaceVisible.Set(1)
	} else {
		metrics.FaceVisible.Set(0)
	}

	if present != w.present {
		w.present = present
		logging.Component("watcher").Debugf("face visible: %t", present)
		if w.onChange != nil {
			w.onChange(present)
		}
	}
}
