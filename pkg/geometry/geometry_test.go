package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitContain(t *testing.T) {
	tr, err := Fit(Size{800, 600}, Size{400, 400}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tr.Scale, 1e-9)
	assert.InDelta(t, 400, tr.Width, 1e-9)
	assert.InDelta(t, 300, tr.Height, 1e-9)
	assert.Zero(t, tr.Tx)
	assert.Zero(t, tr.Ty)
}

func TestFitFill(t *testing.T) {
	tr, err := Fit(Size{800, 600}, Size{400, 400}, true)
	require.NoError(t, err)
	assert.InDelta(t, 400.0/600.0, tr.Scale, 1e-9)
	scaledWidth := 800 * tr.Scale
	assert.InDelta(t, 533.333, scaledWidth, 1e-3)
	assert.InDelta(t, -(scaledWidth-400)/2, tr.Tx, 1e-9)
	assert.InDelta(t, -66.667, tr.Tx, 1e-3)
	assert.Zero(t, tr.Ty)
	assert.Equal(t, 400.0, tr.Width)
	assert.Equal(t, 400.0, tr.Height)
}

func TestFitFillPortrait(t *testing.T) {
	tr, err := Fit(Size{300, 900}, Size{200, 200}, true)
	require.NoError(t, err)
	assert.InDelta(t, 200.0/300.0, tr.Scale, 1e-9)
	assert.Zero(t, tr.Tx)
	assert.InDelta(t, -(600-200)/2.0, tr.Ty, 1e-9)
	assert.Equal(t, 200.0, tr.Width)
	assert.Equal(t, 200.0, tr.Height)
}

func TestFitUpscale(t *testing.T) {
	tr, err := Fit(Size{100, 50}, Size{400, 400}, false)
	require.NoError(t, err)
	assert.InDelta(t, 4, tr.Scale, 1e-9)
	assert.InDelta(t, 400, tr.Width, 1e-9)
	assert.InDelta(t, 200, tr.Height, 1e-9)
}

func TestFitRejectsEmpty(t *testing.T) {
	_, err := Fit(Size{0, 10}, Size{10, 10}, false)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Fit(Size{10, 10}, Size{10, -1}, true)
	assert.ErrorIs(t, err, ErrEmpty)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = Fit(Size{v, 10}, Size{10, 10}, false)
		assert.ErrorIs(t, err, ErrEmpty)
		_, err = Fit(Size{10, 10}, Size{10, v}, true)
		assert.ErrorIs(t, err, ErrEmpty)
	}
}

func TestMatrix(t *testing.T) {
	m := Transform{Scale: 2, Tx: -3, Ty: 4}.Matrix()
	assert.Equal(t, [9]float64{2, 0, -3, 0, 2, 4, 0, 0, 1}, m)
}
