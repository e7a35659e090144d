package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nirmaltodwal7/facegate/pkg/camera"
	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/gate"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
)

// maxFrameBytes bounds a single uploaded frame. Dashboard webcam
// captures are well under this.
const maxFrameBytes = 8 << 20

// Server holds the HTTP handlers for the face gate.
type Server struct {
	gate        *gate.Gate
	detector    face.Detector
	hub         *Hub
	presence    *camera.PushSource
	sampleCount int
}

// NewServer wires handlers over the gate, the detector used for
// uploaded frames and the presence hub. presence may be nil when the
// continuous watcher is disabled.
func NewServer(g *gate.Gate, detector face.Detector, hub *Hub, presence *camera.PushSource, sampleCount int) *Server {
	if sampleCount <= 0 {
		sampleCount = 5
	}
	return &Server{gate: g, detector: detector, hub: hub, presence: presence, sampleCount: sampleCount}
}

// handleEnroll runs a full enrollment from uploaded frames. The request
// is multipart with one "frames" file per sample, in capture order.
func (s *Server) handleEnroll(c *gin.Context) {
	userID := c.Param("id")
	attemptID := uuid.New().String()

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":       "BAD_REQUEST",
			"error":      "expected multipart form data",
			"attempt_id": attemptID,
		})
		return
	}

	files := form.File["frames"]
	if len(files) < s.sampleCount {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":       "BAD_REQUEST",
			"error":      "not enough frames for enrollment",
			"expected":   s.sampleCount,
			"received":   len(files),
			"attempt_id": attemptID,
		})
		return
	}

	frames, err := readFrames(files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":       "BAD_REQUEST",
			"error":      "could not read uploaded frames",
			"attempt_id": attemptID,
		})
		return
	}

	src := camera.NewSampler(camera.NewFrameQueue(frames), s.detector)
	tpl, err := s.gate.Enroll(c.Request.Context(), userID, src)
	if err != nil {
		writeGateError(c, attemptID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":     tpl.UserID,
		"enrolled_at": tpl.CreatedAt,
		"samples":     s.sampleCount,
		"attempt_id":  attemptID,
	})
}

// handleVerify runs one verification attempt from a single uploaded
// frame (field "frame").
func (s *Server) handleVerify(c *gin.Context) {
	userID := c.Param("id")
	attemptID := uuid.New().String()

	file, err := c.FormFile("frame")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":       "BAD_REQUEST",
			"error":      "expected one frame upload",
			"attempt_id": attemptID,
		})
		return
	}

	frames, err := readFrames([]*multipart.FileHeader{file})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":       "BAD_REQUEST",
			"error":      "could not read uploaded frame",
			"attempt_id": attemptID,
		})
		return
	}

	src := camera.NewSampler(camera.NewFrameQueue(frames), s.detector)
	outcome, err := s.gate.Verify(c.Request.Context(), userID, src)
	if err != nil {
		writeGateError(c, attemptID, err)
		return
	}

	status := http.StatusOK
	if !outcome.Matched {
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{
		"matched":         outcome.Matched,
		"distance":        outcome.Distance,
		"confidence":      outcome.Confidence,
		"remaining_quota": outcome.RemainingQuota,
		"attempt_id":      attemptID,
	})
}

// handleTemplateStatus reports whether the user is enrolled.
func (s *Server) handleTemplateStatus(c *gin.Context) {
	userID := c.Param("id")

	count, oldest, err := s.gate.Status(c.Request.Context(), userID)
	if err != nil {
		writeGateError(c, "", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"enrolled":       true,
		"template_count": count,
		"enrolled_at":    oldest,
	})
}

// handleTemplateDelete removes all templates for the user.
func (s *Server) handleTemplateDelete(c *gin.Context) {
	userID := c.Param("id")

	if err := s.gate.Remove(c.Request.Context(), userID); err != nil {
		writeGateError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "deleted": true})
}

// handleQuota reports the user's remaining attempts for today.
func (s *Server) handleQuota(c *gin.Context) {
	userID := c.Param("id")

	remaining, err := s.gate.RemainingQuota(c.Request.Context(), userID)
	if err != nil {
		writeGateError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "remaining": remaining})
}

// handleQuotaReset clears the user's counter. Admin key only.
func (s *Server) handleQuotaReset(c *gin.Context) {
	userID := c.Param("id")

	if err := s.gate.ResetQuota(c.Request.Context(), userID); err != nil {
		writeGateError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "reset": true})
}

// handlePresenceFrame feeds a dashboard webcam frame to the continuous
// presence watcher. The frame only drives the visibility indicator; it
// is never matched or stored.
func (s *Server) handlePresenceFrame(c *gin.Context) {
	if s.presence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "WATCHER_DISABLED",
			"error": "presence watcher is not enabled",
		})
		return
	}

	file, err := c.FormFile("frame")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "BAD_REQUEST",
			"error": "expected one frame upload",
		})
		return
	}

	frames, err := readFrames([]*multipart.FileHeader{file})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "BAD_REQUEST",
			"error": "could not read uploaded frame",
		})
		return
	}

	if err := s.presence.Push(frames[0]); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "WATCHER_DISABLED",
			"error": "presence watcher is shutting down",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
}

// readFrames loads uploaded images into frames, preserving order.
func readFrames(files []*multipart.FileHeader) ([]face.Frame, error) {
	frames := make([]face.Frame, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxFrameBytes))
		f.Close()
		if err != nil {
			return nil, err
		}
		frames = append(frames, face.Frame{Data: data, Timestamp: time.Now()})
	}
	return frames, nil
}

// statusForCode maps gate error codes to HTTP statuses.
func statusForCode(code gate.ErrorCode) int {
	switch code {
	case gate.CodeNoFace, gate.CodeMultipleFaces:
		return http.StatusUnprocessableEntity
	case gate.CodeLivenessFailed:
		return http.StatusForbidden
	case gate.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case gate.CodeNotEnrolled:
		return http.StatusNotFound
	case gate.CodeCapture:
		return http.StatusUnprocessableEntity
	case gate.CodeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeGateError renders a gate failure with its stable code so the
// dashboard can branch on it.
func writeGateError(c *gin.Context, attemptID string, err error) {
	code := gate.CodeOf(err)
	if code == "" {
		logging.Component("api").WithError(err).Error("unexpected handler error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL",
			"error": "internal error",
		})
		return
	}

	retry := false
	message := err.Error()
	var ge *gate.Error
	if errors.As(err, &ge) {
		retry = ge.Retry
		message = ge.Message
	}

	body := gin.H{
		"code":  string(code),
		"error": message,
		"retry": retry,
	}
	if attemptID != "" {
		body["attempt_id"] = attemptID
	}
	c.JSON(statusForCode(code), body)
}
