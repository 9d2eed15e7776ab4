// Package classifier wraps the trained paper/plastic ONNX model behind
// OpenCV's DNN module. The model is loaded once at process start and
// reused for every frame; inference itself is mutex-guarded because
// gocv.Net is not reentrant.
package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sorter/pkg/vote"
)

// ErrModelLoad means the model artifact could not be opened or parsed.
// This is fatal at startup and never retried.
var ErrModelLoad = errors.New("classifier: model load failed")

// Config describes the model artifact and its input contract. The
// normalization numbers are a property of the model and must match
// training-time preprocessing exactly.
type Config struct {
	ModelPath string
	Classes   []string // ordered, index-aligned to the output vector

	InputWidth  int
	InputHeight int

	// Affine input transform: scale * (pixel - mean), per channel.
	Scale  float64
	Mean   [3]float64
	SwapRB bool // OpenCV decodes BGR; most models are trained on RGB

	// Integer-quantized model variants. When Quantized is set the input
	// affine quantization is folded into the blob transform and the raw
	// output is de-quantized before softmax.
	Quantized       bool
	InputScale      float64
	InputZeroPoint  float64
	OutputScale     float64
	OutputZeroPoint float64
}

// DefaultConfig returns the contract for the bundled float model.
func DefaultConfig(modelPath string, classes []string) Config {
	return Config{
		ModelPath:   modelPath,
		Classes:     classes,
		InputWidth:  96,
		InputHeight: 96,
		Scale:       1.0 / 255.0,
		SwapRB:      true,
	}
}

// Result is one frame's classification over the configured class set.
type Result struct {
	Label      string
	Confidence float64   // percent, 0-100
	Probs      []float64 // softmax output, sums to 1, one entry per class
}

// Ballot converts the result into an ensemble vote ballot.
func (r Result) Ballot() vote.Ballot {
	return vote.Ballot{Label: r.Label, Probs: r.Probs}
}

// Classifier runs single-frame inference against the loaded model.
type Classifier struct {
	net gocv.Net
	cfg Config
	mu  sync.Mutex // protects inference
}

// New loads the ONNX model. Failure here is unrecoverable for the
// process; callers should exit rather than retry.
func New(cfg Config) (*Classifier, error) {
	if len(cfg.Classes) < 2 {
		return nil, fmt.Errorf("classifier: need at least 2 classes, got %d", len(cfg.Classes))
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, cfg.ModelPath, err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Classifier{net: net, cfg: cfg}, nil
}

// Classify runs one forward pass over an encoded image and returns the
// winning label, its confidence as a percentage, and the full softmax
// probability vector. A malformed frame or output shape mismatch fails
// only this frame; the model stays usable.
func (c *Classifier) Classify(jpeg []byte) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return Result{}, fmt.Errorf("classifier: decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return Result{}, errors.New("classifier: empty image")
	}

	scale, mean := c.cfg.blobParams()
	blob := gocv.BlobFromImage(img, scale,
		image.Pt(c.cfg.InputWidth, c.cfg.InputHeight),
		gocv.NewScalar(mean[0], mean[1], mean[2], 0),
		c.cfg.SwapRB, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	if out.Total() != len(c.cfg.Classes) {
		return Result{}, fmt.Errorf("classifier: model returned %d outputs, want %d",
			out.Total(), len(c.cfg.Classes))
	}

	raw := make([]float64, len(c.cfg.Classes))
	for i := range raw {
		raw[i] = float64(out.GetFloatAt(0, i))
	}
	if c.cfg.Quantized {
		raw = dequantize(raw, c.cfg.OutputScale, c.cfg.OutputZeroPoint)
	}

	// Softmax regardless of whether the model output was already
	// normalized; the voter relies on a proper probability vector.
	probs := softmax(raw)
	idx := argmax(probs)

	return Result{
		Label:      c.cfg.Classes[idx],
		Confidence: probs[idx] * 100.0,
		Probs:      probs,
	}, nil
}

// Close releases the underlying network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// blobParams folds the quantization affine mapping into the blob
// transform. With normalization s*(x-m) and quantization q = y/qs + zp:
//
//	q = (s/qs) * (x - (m - zp*qs/s))
//
// so the blob scale becomes s/qs and the zero point shifts the mean.
func (c Config) blobParams() (float64, [3]float64) {
	if !c.Quantized {
		return c.Scale, c.Mean
	}
	scale := c.Scale / c.InputScale
	shift := c.InputZeroPoint * c.InputScale / c.Scale
	var mean [3]float64
	for i := range mean {
		mean[i] = c.Mean[i] - shift
	}
	return scale, mean
}

// dequantize maps integer-domain outputs back to real values:
// y = scale * (q - zeroPoint).
func dequantize(raw []float64, scale, zeroPoint float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = scale * (v - zeroPoint)
	}
	return out
}

// softmax is numerically stable under large logits.
func softmax(raw []float64) []float64 {
	max := raw[0]
	for _, v := range raw[1:] {
		if v > max {
			max = v
		}
	}

	probs := make([]float64, len(raw))
	var sum float64
	for i, v := range raw {
		probs[i] = math.Exp(v - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
