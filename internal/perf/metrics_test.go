package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestComputePeerStats(t *testing.T) {
	all := []Metrics{
		{Company: "A", Sector: "AM", ROE5yAvg: fptr(10), OpMargin5yAvg: fptr(0.2)},
		{Company: "B", Sector: "AM", ROE5yAvg: fptr(20), OpMargin5yAvg: fptr(0.4)},
		{Company: "C", Sector: "Bank", ROE5yAvg: fptr(100)},
	}

	t.Run("AllSectors", func(t *testing.T) {
		ps := ComputePeerStats(all, "")
		assert.Equal(t, 3, ps.SampleSize)
		assert.InDelta(t, 130.0/3, ps.ROE.Mean, 1e-9)
	})

	t.Run("SectorFiltered", func(t *testing.T) {
		ps := ComputePeerStats(all, "AM")
		assert.Equal(t, 2, ps.SampleSize)
		assert.InDelta(t, 15.0, ps.ROE.Mean, 1e-9)
		assert.InDelta(t, 0.3, ps.Margin.Mean, 1e-9)
	})

	t.Run("EmptyFallsBack", func(t *testing.T) {
		ps := ComputePeerStats(nil, "")
		assert.Equal(t, DefaultPeerStats().ROE, ps.ROE)
		assert.Equal(t, DefaultPeerStats().TSR, ps.TSR)
		assert.Zero(t, ps.SampleSize)
	})

	t.Run("SingleValueKeepsFallbackStd", func(t *testing.T) {
		ps := ComputePeerStats([]Metrics{{Company: "A", ROE5yAvg: fptr(12)}}, "")
		assert.InDelta(t, 12.0, ps.ROE.Mean, 1e-9)
		assert.InDelta(t, DefaultPeerStats().ROE.Std, ps.ROE.Std, 1e-9)
	})

	t.Run("MissingMetricFallsBack", func(t *testing.T) {
		// nobody reports TSR, so its distribution stays at the default
		ps := ComputePeerStats(all, "")
		assert.Equal(t, DefaultPeerStats().TSR, ps.TSR)
	})
}
