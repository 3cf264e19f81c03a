package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	assert.Nil(t, Aggregate(nil))
	assert.Nil(t, Aggregate([]float64{}))
}

func TestAggregate_Single(t *testing.T) {
	s := Aggregate([]float64{5.0})
	require.NotNil(t, s)

	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 5.0, s.Average)
	assert.Equal(t, 5.0, s.Median)
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 5.0, s.P90)
	assert.Equal(t, 5.0, s.P99)
}

func TestAggregate_OneToFive(t *testing.T) {
	s := Aggregate([]float64{4, 2, 5, 1, 3})
	require.NotNil(t, s)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Average, 1e-12)
	assert.InDelta(t, 3.0, s.Median, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.InDelta(t, 1.5811, s.StdDev, 1e-4)
	// rank 3.6 -> 4 + 0.6*(5-4)
	assert.InDelta(t, 4.6, s.P90, 1e-12)
	// rank 3.96 -> 4 + 0.96
	assert.InDelta(t, 4.96, s.P99, 1e-12)
}

func TestAggregate_EvenMedian(t *testing.T) {
	s := Aggregate([]float64{1, 2, 3, 10})
	require.NotNil(t, s)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
}

func TestAggregate_DoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_ = Aggregate(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 10.0, Percentile(sorted, 0))
	assert.Equal(t, 40.0, Percentile(sorted, 100))
	assert.InDelta(t, 25.0, Percentile(sorted, 50), 1e-12)
	assert.InDelta(t, 37.0, Percentile(sorted, 90), 1e-12)
}
