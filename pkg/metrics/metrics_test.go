package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	c := New()
	start := time.Now()
	c.Observe("stat", "sandbox", start, nil)
	c.Observe("stat", "sandbox", start, nil)
	c.Observe("stat", "sandbox", start, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("stat", "sandbox", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("stat", "sandbox", ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestOpenBlobsGauge(t *testing.T) {
	c := New()
	c.BlobOpened()
	c.BlobOpened()
	c.BlobReleased()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.openBlobs))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Observe("stat", "provider", time.Now(), nil)
	c.BlobOpened()
	c.BlobReleased()
	assert.NoError(t, c.Register(prometheus.NewRegistry()))
}
