package gate

import (
	"context"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
	"github.com/nirmaltodwal7/facegate/pkg/metrics"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

// Enroll captures SampleCount detections from src, averages them into
// one reference template and persists it for userID. Enrollment is
// all-or-nothing: any failed sample aborts the whole attempt and
// nothing is written. Exactly one store write happens on success.
func (g *Gate) Enroll(ctx context.Context, userID string, src SampleProvider) (*storage.Template, error) {
	unlock := g.lockUser(userID)
	defer unlock()

	log := logging.Component("gate").WithField("user", userID)
	state := stateCapturing
	log.Debugf("enrollment %s", state)

	samples := make([]face.Embedding, 0, g.opts.SampleCount)
	for i := 0; i < g.opts.SampleCount; i++ {
		if i > 0 {
			if err := g.waitInterval(ctx); err != nil {
				metrics.Enrollments.WithLabelValues("cancelled").Inc()
				return nil, wrapError(CodeCapture, true, err)
			}
		}

		det, err := g.sample(ctx, src)
		if err != nil {
			state = stateFailed
			log.WithError(err).Warnf("enrollment %s on sample %d/%d", state, i+1, g.opts.SampleCount)
			metrics.Enrollments.WithLabelValues(resultLabel(err)).Inc()
			return nil, err
		}
		samples = append(samples, det.Embedding)
	}

	state = stateEvaluating
	log.Debugf("enrollment %s", state)

	vector, err := face.Average(samples)
	if err != nil {
		metrics.Enrollments.WithLabelValues("error").Inc()
		return nil, wrapError(CodeCapture, false, err)
	}

	tpl := storage.Template{
		UserID:    userID,
		Vector:    vector,
		CreatedAt: g.now(),
	}

	if g.opts.Retention == RetentionReplace {
		err = g.templates.Replace(ctx, tpl)
	} else {
		err = g.templates.Append(ctx, tpl)
	}
	if err != nil {
		// No success may be reported without a confirmed write.
		state = stateFailed
		log.WithError(err).Errorf("enrollment %s persisting template", state)
		metrics.Enrollments.WithLabelValues("storage_failure").Inc()
		return nil, wrapError(CodeStorage, true, err)
	}

	state = stateSuccess
	log.Infof("enrollment %s (%d samples averaged)", state, len(samples))
	metrics.Enrollments.WithLabelValues("enrolled").Inc()
	return &tpl, nil
}

// resultLabel maps a gate error to a metrics label.
func resultLabel(err error) string {
	switch CodeOf(err) {
	case CodeNoFace:
		return "no_face"
	case CodeMultipleFaces:
		return "multiple_faces"
	case CodeLivenessFailed:
		return "liveness_failed"
	case CodeQuotaExceeded:
		return "quota_exceeded"
	case CodeNotEnrolled:
		return "not_enrolled"
	case CodeStorage:
		return "storage_failure"
	case CodeCapture:
		return "capture_failure"
	default:
		return "error"
	}
}
