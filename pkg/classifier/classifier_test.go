package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmaxIsAProbabilityVector(t *testing.T) {
	tests := []struct {
		name string
		raw  []float64
	}{
		{name: "already normalized", raw: []float64{0.7, 0.3}},
		{name: "raw logits", raw: []float64{2.5, -1.0}},
		{name: "large logits stay finite", raw: []float64{1000, 999}},
		{name: "negative logits", raw: []float64{-5, -7, -6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := softmax(tt.raw)
			require.Len(t, probs, len(tt.raw))

			var sum float64
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestSoftmaxPreservesOrder(t *testing.T) {
	probs := softmax([]float64{3.0, 1.0, 2.0})

	assert.Greater(t, probs[0], probs[2])
	assert.Greater(t, probs[2], probs[1])
	assert.Equal(t, 0, argmax(probs))
}

func TestArgmaxTakesFirstOnEqual(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{0.5, 0.5}))
	assert.Equal(t, 1, argmax([]float64{0.2, 0.6, 0.2}))
}

func TestDequantize(t *testing.T) {
	// uint8-style quantization: scale 1/256, zero point 128.
	out := dequantize([]float64{128, 192, 64}, 1.0/256.0, 128)

	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 0.25, out[1], 1e-9)
	assert.InDelta(t, -0.25, out[2], 1e-9)
}

func TestBlobParamsFloatModel(t *testing.T) {
	cfg := DefaultConfig("model.onnx", []string{"paper", "plastic"})

	scale, mean := cfg.blobParams()
	assert.InDelta(t, 1.0/255.0, scale, 1e-12)
	assert.Equal(t, [3]float64{}, mean)
}

func TestBlobParamsFoldQuantization(t *testing.T) {
	cfg := DefaultConfig("model.onnx", []string{"paper", "plastic"})
	cfg.Quantized = true
	cfg.InputScale = 1.0 / 128.0
	cfg.InputZeroPoint = 128

	scale, mean := cfg.blobParams()

	// For any pixel x the folded transform must equal quantize(normalize(x)).
	for _, x := range []float64{0, 17, 128, 255} {
		want := (cfg.Scale*x)/cfg.InputScale + cfg.InputZeroPoint
		got := scale * (x - mean[0])
		assert.InDelta(t, want, got, 1e-6, "pixel %v", x)
	}
}

func TestResultBallot(t *testing.T) {
	r := Result{Label: "plastic", Confidence: 81.0, Probs: []float64{0.19, 0.81}}

	b := r.Ballot()
	assert.Equal(t, "plastic", b.Label)
	assert.Equal(t, []float64{0.19, 0.81}, b.Probs)
}

func TestNewRejectsMissingModel(t *testing.T) {
	cfg := DefaultConfig("testdata/does-not-exist.onnx", []string{"paper", "plastic"})

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestNewRejectsShortClassSet(t *testing.T) {
	cfg := DefaultConfig("model.onnx", []string{"paper"})

	_, err := New(cfg)
	assert.Error(t, err)
}
