package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/eyeproctor/pkg/attention"
	"github.com/teslashibe/eyeproctor/pkg/debug"
	"gocv.io/x/gocv"
)

// yuNetColumns is the row width of FaceDetectorYN output: box (4),
// five landmark pairs (10) and the score.
const yuNetColumns = 15

// YuNetDetector uses OpenCV's FaceDetectorYN for face and landmark detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a new YuNet face detector
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	nms := cfg.NMSThresh
	if nms <= 0 {
		nms = 0.3
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(nms),
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds faces in the JPEG image
func (d *YuNetDetector) Detect(jpeg []byte) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	if faces.Cols() < yuNetColumns {
		return nil, nil
	}

	rows := make([][]float64, faces.Rows())
	for r := range rows {
		row := make([]float64, yuNetColumns)
		for c := 0; c < yuNetColumns; c++ {
			row[c] = float64(faces.GetFloatAt(r, c))
		}
		rows[r] = row
	}

	detections := parseYuNetRows(rows, float64(img.Cols()), float64(img.Rows()))
	if len(detections) > 0 {
		debug.FrameLog("yunet", "faces", len(detections))
	}
	return detections, nil
}

// parseYuNetRows converts raw FaceDetectorYN rows into detections with a
// normalized box and pixel landmarks.
func parseYuNetRows(rows [][]float64, imgW, imgH float64) []Detection {
	if imgW <= 0 || imgH <= 0 {
		return nil
	}

	detections := make([]Detection, 0, len(rows))
	for _, row := range rows {
		if len(row) < yuNetColumns {
			continue
		}

		landmarks := make([]attention.Point, NumLandmarks)
		for i := 0; i < NumLandmarks; i++ {
			landmarks[i] = attention.Point{X: row[4+2*i], Y: row[5+2*i]}
		}

		detections = append(detections, Detection{
			X:          row[0] / imgW,
			Y:          row[1] / imgH,
			W:          row[2] / imgW,
			H:          row[3] / imgH,
			Confidence: row[14],
			Landmarks:  landmarks,
		})
	}
	return detections
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
