package face

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nirmaltodwal7/facegate/pkg/logging"
)

const (
	onnxInputSize = 160
	onnxMaxFaces  = 16
	// 6 contour points per eye, 2 eyes, 2 coordinates each.
	onnxLandmarkValues = EyePointCount * 2 * 2
)

// OnnxDetector implements Detector using a fused detection/embedding
// model via ONNX Runtime. The model takes a normalized [1,3,160,160]
// CHW tensor named "input" and emits three fixed-shape outputs:
//
//	scores     [16,1]   face confidence per slot, 0 for empty slots
//	embeddings [16,128] identity embedding per slot
//	landmarks  [16,24]  eye contours per slot, normalized to [0,1]
//
// ort.InitializeEnvironment must be called before NewOnnxDetector.
type OnnxDetector struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	scores    *ort.Tensor[float32]
	embedding *ort.Tensor[float32]
	landmarks *ort.Tensor[float32]
	threshold float32
}

// NewOnnxDetector loads the fused face model from modelPath.
func NewOnnxDetector(modelPath string, threshold float32) (*OnnxDetector, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, onnxInputSize, onnxInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	scores, err := ort.NewEmptyTensor[float32](ort.NewShape(onnxMaxFaces, 1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create scores tensor: %w", err)
	}
	embedding, err := ort.NewEmptyTensor[float32](ort.NewShape(onnxMaxFaces, EmbeddingDim))
	if err != nil {
		input.Destroy()
		scores.Destroy()
		return nil, fmt.Errorf("create embeddings tensor: %w", err)
	}
	landmarks, err := ort.NewEmptyTensor[float32](ort.NewShape(onnxMaxFaces, onnxLandmarkValues))
	if err != nil {
		input.Destroy()
		scores.Destroy()
		embedding.Destroy()
		return nil, fmt.Errorf("create landmarks tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"scores", "embeddings", "landmarks"},
		[]ort.Value{input},
		[]ort.Value{scores, embedding, landmarks},
		nil,
	)
	if err != nil {
		input.Destroy()
		scores.Destroy()
		embedding.Destroy()
		landmarks.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	logging.Component("face").Infof("onnx face model loaded from %s", modelPath)
	return &OnnxDetector{
		session:   session,
		input:     input,
		scores:    scores,
		embedding: embedding,
		landmarks: landmarks,
		threshold: threshold,
	}, nil
}

// Detect decodes the frame image, runs the model and returns one
// detection per slot whose score clears the threshold.
func (d *OnnxDetector) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chw, origW, origH, err := decodeToCHW(frame.Data)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	// The session owns its tensors; one inference at a time.
	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.input.GetData(), chw)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	return d.parse(origW, origH), nil
}

func (d *OnnxDetector) parse(origW, origH int) []Detection {
	scores := d.scores.GetData()
	embeddings := d.embedding.GetData()
	landmarks := d.landmarks.GetData()

	var detections []Detection
	for slot := 0; slot < onnxMaxFaces; slot++ {
		score := scores[slot]
		if score < d.threshold {
			continue
		}

		var emb Embedding
		copy(emb[:], embeddings[slot*EmbeddingDim:(slot+1)*EmbeddingDim])

		det := Detection{
			Embedding:  emb,
			Confidence: float64(score),
			LeftEye:    make([]Point, EyePointCount),
			RightEye:   make([]Point, EyePointCount),
		}

		base := slot * onnxLandmarkValues
		for i := 0; i < EyePointCount; i++ {
			det.LeftEye[i] = Point{
				X: float64(landmarks[base+i*2]) * float64(origW),
				Y: float64(landmarks[base+i*2+1]) * float64(origH),
			}
			right := base + EyePointCount*2
			det.RightEye[i] = Point{
				X: float64(landmarks[right+i*2]) * float64(origW),
				Y: float64(landmarks[right+i*2+1]) * float64(origH),
			}
		}

		detections = append(detections, det)
	}
	return detections
}

// Close destroys the session and its tensors.
func (d *OnnxDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	for _, t := range []*ort.Tensor[float32]{d.input, d.scores, d.embedding, d.landmarks} {
		if t != nil {
			t.Destroy()
		}
	}
	d.input, d.scores, d.embedding, d.landmarks = nil, nil, nil, nil
	return nil
}

// decodeToCHW decodes an encoded image, resizes it to the model input
// size with nearest-neighbor sampling and normalizes to [-1,1] CHW.
func decodeToCHW(data []byte) ([]float32, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}

	out := make([]float32, 3*onnxInputSize*onnxInputSize)
	plane := onnxInputSize * onnxInputSize

	for y := 0; y < onnxInputSize; y++ {
		srcY := bounds.Min.Y + y*origH/onnxInputSize
		for x := 0; x < onnxInputSize; x++ {
			srcX := bounds.Min.X + x*origW/onnxInputSize
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := y*onnxInputSize + x
			out[idx] = (float32(r>>8) - 127.5) / 128.0
			out[plane+idx] = (float32(g>>8) - 127.5) / 128.0
			out[2*plane+idx] = (float32(b>>8) - 127.5) / 128.0
		}
	}

	return out, origW, origH, nil
}
