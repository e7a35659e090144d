package gate

import (
	"context"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/metrics"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

// Outcome is the transient result of one verification attempt. It is
// never persisted.
type Outcome struct {
	Matched    bool
	Distance   float64
	Confidence float64
	LeftEAR    float64
	RightEAR   float64
	// RemainingQuota is the user's quota left after this attempt.
	RemainingQuota int
}

// Verify runs one verification attempt for userID: quota gate, template
// load, one live sample, liveness check, then nearest-template distance
// against the match threshold. The quota check is the cheapest step and
// runs first; an admitted attempt consumes exactly one quota unit
// whatever its outcome.
func (g *Gate) Verify(ctx context.Context, userID string, src SampleProvider) (*Outcome, error) {
	unlock := g.lockUser(userID)
	defer unlock()

	log := logging.Component("gate").WithField("user", userID)
	start := time.Now()

	remaining, ok, err := g.quota.CheckAndReserve(ctx, userID, g.now())
	if err != nil {
		metrics.VerifyAttempts.WithLabelValues("storage_failure").Inc()
		return nil, wrapError(CodeStorage, true, err)
	}
	if !ok {
		log.Warn("verification rejected: daily quota exhausted")
		metrics.QuotaRejections.Inc()
		metrics.VerifyAttempts.WithLabelValues("quota_exceeded").Inc()
		return nil, newError(CodeQuotaExceeded, false)
	}

	templates, err := g.templates.Get(ctx, userID)
	if err == storage.ErrUserNotFound {
		metrics.VerifyAttempts.WithLabelValues("not_enrolled").Inc()
		return nil, newError(CodeNotEnrolled, false)
	}
	if err != nil {
		metrics.VerifyAttempts.WithLabelValues("storage_failure").Inc()
		return nil, wrapError(CodeStorage, true, err)
	}
	if len(templates) == 0 {
		metrics.VerifyAttempts.WithLabelValues("not_enrolled").Inc()
		return nil, newError(CodeNotEnrolled, false)
	}

	state := stateCapturing
	log.Debugf("verification %s", state)

	det, err := g.sample(ctx, src)
	if err != nil {
		metrics.VerifyAttempts.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	metrics.DetectDuration.Observe(time.Since(start).Seconds())

	state = stateEvaluating
	log.Debugf("verification %s", state)

	// Liveness gates matching: a spoofed face that would match by
	// distance must still fail with a liveness-specific error.
	live, err := g.liveness.Evaluate(det.LeftEye, det.RightEye)
	if err != nil {
		metrics.VerifyAttempts.WithLabelValues("liveness_failed").Inc()
		return nil, wrapError(CodeLivenessFailed, true, err)
	}
	if !live.IsLive {
		log.Warnf("liveness check failed (left EAR %.3f, right EAR %.3f) - possible spoofing attempt",
			live.LeftEAR, live.RightEAR)
		metrics.VerifyAttempts.WithLabelValues("liveness_failed").Inc()
		return nil, newError(CodeLivenessFailed, true)
	}

	dMin := face.EuclideanDistance(det.Embedding, templates[0].Vector)
	for _, tpl := range templates[1:] {
		if d := face.EuclideanDistance(det.Embedding, tpl.Vector); d < dMin {
			dMin = d
		}
	}

	outcome := &Outcome{
		Distance:       dMin,
		LeftEAR:        live.LeftEAR,
		RightEAR:       live.RightEAR,
		RemainingQuota: remaining,
	}

	threshold := g.opts.MatchThreshold
	if dMin < threshold {
		outcome.Matched = true
		outcome.Confidence = clampPercent((threshold - dMin) / threshold * 100)
		log.Infof("verification success (distance %.4f, confidence %.1f%%)", dMin, outcome.Confidence)
		metrics.VerifyAttempts.WithLabelValues("matched").Inc()
	} else {
		log.Infof("verification no match (distance %.4f, threshold %.2f)", dMin, threshold)
		metrics.VerifyAttempts.WithLabelValues("not_matched").Inc()
	}

	return outcome, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
