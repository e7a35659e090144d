// Package gate implements the enrollment and verification engines that
// decide whether a live face sample grants access to the dashboard.
// Both engines drive a SampleProvider (camera + detector) through a
// one-shot pipeline: Idle -> Capturing -> Evaluating -> Success|Failed.
// A failed attempt always returns to Idle; retries start fresh.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/liveness"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/quota"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

// SampleProvider produces one detection pass per call. Implementations
// wrap a frame source and a face.Detector.
type SampleProvider interface {
	Sample(ctx context.Context) ([]face.Detection, error)
}

// RetentionPolicy controls what re-enrollment does to prior templates.
type RetentionPolicy string

const (
	// RetentionAppend keeps earlier templates; verification matches the
	// nearest one, tolerating appearance drift.
	RetentionAppend RetentionPolicy = "append"
	// RetentionReplace keeps only the newest template.
	RetentionReplace RetentionPolicy = "replace"
)

// Options configures the engines.
type Options struct {
	MatchThreshold float64
	SampleCount    int
	SampleInterval time.Duration
	SampleTimeout  time.Duration
	Retention      RetentionPolicy
}

// attemptState tracks where a one-shot attempt is in its pipeline.
type attemptState int

const (
	stateIdle attemptState = iota
	stateCapturing
	stateEvaluating
	stateSuccess
	stateFailed
)

func (s attemptState) String() string {
	switch s {
	case stateCapturing:
		return "capturing"
	case stateEvaluating:
		return "evaluating"
	case stateSuccess:
		return "success"
	case stateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Gate owns the enrollment and verification engines and their shared
// collaborators.
type Gate struct {
	templates storage.TemplateStore
	quota     *quota.Tracker
	liveness  *liveness.Evaluator
	opts      Options

	// now is swapped in tests to pin the clock.
	now func() time.Time

	// Per-user locks: one enroll-or-verify call per user at a time, so
	// a verify never reads a template set mid-write. No cross-user lock.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates a gate over the given collaborators.
func New(templates storage.TemplateStore, tracker *quota.Tracker, evaluator *liveness.Evaluator, opts Options) *Gate {
	if opts.SampleCount <= 0 {
		opts.SampleCount = 5
	}
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = 0.6
	}
	if opts.SampleTimeout <= 0 {
		opts.SampleTimeout = 5 * time.Second
	}
	if opts.Retention == "" {
		opts.Retention = RetentionAppend
	}
	return &Gate{
		templates: templates,
		quota:     tracker,
		liveness:  evaluator,
		opts:      opts,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockUser serializes enroll/verify per user id.
func (g *Gate) lockUser(userID string) func() {
	g.lockMu.Lock()
	mu, ok := g.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		g.locks[userID] = mu
	}
	g.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// sample requests one detection pass with the per-sample timeout and
// applies the single-face policy: zero faces is NoFace, more than one
// is MultipleFaces (a gate must not guess which face to verify).
func (g *Gate) sample(ctx context.Context, src SampleProvider) (face.Detection, error) {
	sctx, cancel := context.WithTimeout(ctx, g.opts.SampleTimeout)
	defer cancel()

	detections, err := src.Sample(sctx)
	if err != nil {
		return face.Detection{}, wrapError(CodeCapture, true, err)
	}

	switch len(detections) {
	case 0:
		return face.Detection{}, newError(CodeNoFace, true)
	case 1:
		return detections[0], nil
	default:
		return face.Detection{}, newError(CodeMultipleFaces, true)
	}
}

// waitInterval pauses between enrollment samples so repeated captures
// are not frame-identical, honoring cancellation.
func (g *Gate) waitInterval(ctx context.Context) error {
	if g.opts.SampleInterval <= 0 {
		return nil
	}
	timer := time.NewTimer(g.opts.SampleInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status reports whether a user is enrolled and since when.
func (g *Gate) Status(ctx context.Context, userID string) (int, time.Time, error) {
	templates, err := g.templates.Get(ctx, userID)
	if err == storage.ErrUserNotFound {
		return 0, time.Time{}, newError(CodeNotEnrolled, false)
	}
	if err != nil {
		return 0, time.Time{}, wrapError(CodeStorage, true, err)
	}

	oldest := templates[0].CreatedAt
	for _, t := range templates[1:] {
		if t.CreatedAt.Before(oldest) {
			oldest = t.CreatedAt
		}
	}
	return len(templates), oldest, nil
}

// Remove deletes all templates for a user.
func (g *Gate) Remove(ctx context.Context, userID string) error {
	unlock := g.lockUser(userID)
	defer unlock()

	err := g.templates.Delete(ctx, userID)
	if err == storage.ErrUserNotFound {
		return newError(CodeNotEnrolled, false)
	}
	if err != nil {
		return wrapError(CodeStorage, true, err)
	}
	logging.Component("gate").Infof("removed templates for user %s", userID)
	return nil
}

// RemainingQuota reports the user's remaining attempts for today.
func (g *Gate) RemainingQuota(ctx context.Context, userID string) (int, error) {
	remaining, err := g.quota.Remaining(ctx, userID, g.now())
	if err != nil {
		return 0, wrapError(CodeStorage, true, err)
	}
	return remaining, nil
}

// ResetQuota clears the user's counter (administrative action).
func (g *Gate) ResetQuota(ctx context.Context, userID string) error {
	if err := g.quota.Reset(ctx, userID); err != nil {
		return wrapError(CodeStorage, true, err)
	}
	logging.Component("gate").Infof("quota reset for user %s", userID)
	return nil
}
