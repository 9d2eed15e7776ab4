// Package camera captures staged frame batches from a local webcam
// using OpenCV via gocv. A batch is written to a staging directory with
// ordinal filenames so capture order survives a lexicographic sort.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sorter/internal/log"
)

// ErrDeviceUnavailable means no configured device index could be opened.
var ErrDeviceUnavailable = errors.New("camera: no capture device available")

// Frame is one staged capture from a batch.
type Frame struct {
	Ordinal int    // 1-based position in the batch
	Path    string // staged JPEG on disk
	JPEG    []byte // encoded bytes handed to the classifier
}

// Config holds capture tuning. The warm-up and per-shot read counts
// exist to let the webcam's auto-exposure settle; the alpha/beta pair
// is the linear brightness boost the training images were captured with.
type Config struct {
	DeviceIDs []int // probed in order, first one that opens wins
	Width     int
	Height    int

	WarmupReads int           // frames read and discarded after open
	WarmupDelay time.Duration // pause between warm-up reads

	ShotDelay    time.Duration // pause before each retained shot
	ReadsPerShot int           // reads per shot, keeping the last good one
	ReadDelay    time.Duration // pause between reads within a shot

	Alpha float32 // brightness scale (>1 brightens)
	Beta  float32 // brightness offset (>0 brightens)

	StagingDir string
}

// DefaultConfig returns the bench capture settings.
func DefaultConfig(stagingDir string) Config {
	return Config{
		DeviceIDs:    []int{0, 1},
		Width:        1280,
		Height:       720,
		WarmupReads:  10,
		WarmupDelay:  100 * time.Millisecond,
		ShotDelay:    time.Second,
		ReadsPerShot: 5,
		ReadDelay:    100 * time.Millisecond,
		Alpha:        1.3,
		Beta:         20,
		StagingDir:   stagingDir,
	}
}

// Source captures frame batches. It opens the device per batch and
// releases it when the batch is done, so other tools can use the camera
// between runs.
type Source struct {
	cfg Config
}

// NewSource creates a Source with the given config.
func NewSource(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// Capture clears the staging directory and captures up to n frames.
// A shot whose final read fails is skipped, so the returned batch may
// be shorter than n; callers decide whether a short batch is fatal.
func (s *Source) Capture(ctx context.Context, n int) ([]Frame, error) {
	if err := os.MkdirAll(s.cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("camera: create staging dir: %w", err)
	}

	// Stale frames must be gone before the first new write so the
	// classifier can never pick up images from a previous run.
	removed, err := ClearStaging(s.cfg.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("camera: clear staging dir: %w", err)
	}
	if removed > 0 {
		log.Info("cleared stale frames", "dir", s.cfg.StagingDir, "removed", removed)
	}

	cam, err := s.open()
	if err != nil {
		return nil, err
	}
	defer cam.Close()

	cam.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))

	img := gocv.NewMat()
	defer img.Close()

	// Warm-up: read and discard so auto-exposure stabilizes.
	log.Debug("camera warm-up", "reads", s.cfg.WarmupReads)
	for i := 0; i < s.cfg.WarmupReads; i++ {
		cam.Read(&img)
		if err := sleep(ctx, s.cfg.WarmupDelay); err != nil {
			return nil, err
		}
	}

	var frames []Frame
	for i := 1; i <= n; i++ {
		// Let exposure re-adjust to any scene change between shots.
		if err := sleep(ctx, s.cfg.ShotDelay); err != nil {
			return nil, err
		}

		ok := false
		for r := 0; r < s.cfg.ReadsPerShot; r++ {
			ok = cam.Read(&img) && !img.Empty()
			if err := sleep(ctx, s.cfg.ReadDelay); err != nil {
				return nil, err
			}
		}
		if !ok {
			log.Warn("shot failed, skipping", "ordinal", i)
			continue
		}

		frame, err := s.stage(img, i)
		if err != nil {
			log.Warn("staging failed, skipping shot", "ordinal", i, "error", err)
			continue
		}
		log.Info("frame staged", "path", frame.Path, "bytes", len(frame.JPEG))
		frames = append(frames, frame)
	}

	return frames, nil
}

// stage applies the brightness normalization and persists the frame.
func (s *Source) stage(img gocv.Mat, ordinal int) (Frame, error) {
	out := gocv.NewMat()
	defer out.Close()
	img.ConvertToWithParams(&out, img.Type(), s.cfg.Alpha, s.cfg.Beta)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, out)
	if err != nil {
		return Frame{}, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	// Copy out of the native buffer before it is released.
	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	path := filepath.Join(s.cfg.StagingDir, FrameName(ordinal))
	if err := os.WriteFile(path, jpeg, 0o644); err != nil {
		return Frame{}, fmt.Errorf("write %s: %w", path, err)
	}

	return Frame{Ordinal: ordinal, Path: path, JPEG: jpeg}, nil
}

// open probes the configured device indices in priority order.
func (s *Source) open() (*gocv.VideoCapture, error) {
	for _, id := range s.cfg.DeviceIDs {
		cam, err := gocv.OpenVideoCapture(id)
		if err != nil {
			continue
		}
		if cam.IsOpened() {
			log.Info("camera opened", "device", id)
			return cam, nil
		}
		cam.Close()
	}
	return nil, ErrDeviceUnavailable
}

// FrameName returns the staged filename for a 1-based batch ordinal.
// Names sort lexicographically in capture order for batches up to 9.
func FrameName(ordinal int) string {
	return fmt.Sprintf("image_%d.jpg", ordinal)
}

// ClearStaging removes staged JPEGs from dir, returning how many were
// deleted. Non-image files are left alone.
func ClearStaging(dir string) (int, error) {
	stale, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return 0, err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
