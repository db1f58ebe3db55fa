package internal

import (
	"testing"
)

func TestSizeHistogramEmpty(t *testing.T) {
	h := NewSizeHistogram()

	if h.Average() != 0 {
		t.Errorf("Expected average 0 for empty histogram, got %d", h.Average())
	}
	if h.Median() != 0 {
		t.Errorf("Expected median 0 for empty histogram, got %d", h.Median())
	}
}

func TestSizeHistogramAverage(t *testing.T) {
	h := NewSizeHistogram()

	h.Add(100)
	h.Add(200)
	h.Add(300)

	if h.Average() != 200 {
		t.Errorf("Expected average 200, got %d", h.Average())
	}
}

func TestSizeHistogramMedianBucket(t *testing.T) {
	h := NewSizeHistogram()

	// all samples fall into the 64..256 bucket, so must the median
	for i := 0; i < 100; i++ {
		h.Add(128)
	}

	median := h.Median()
	if median < 64 || median > 256 {
		t.Errorf("Expected median inside the sampled bucket, got %d", median)
	}
}

func TestSizeHistogramMedianSkew(t *testing.T) {
	h := NewSizeHistogram()

	// 90 tiny values and 10 huge ones: the median must stay tiny
	for i := 0; i < 90; i++ {
		h.Add(10)
	}
	for i := 0; i < 10; i++ {
		h.Add(1 << 20)
	}

	if median := h.Median(); median > 16 {
		t.Errorf("Expected median in the smallest bucket, got %d", median)
	}
	if avg := h.Average(); avg < 1<<16 {
		t.Errorf("Expected average pulled up by the large samples, got %d", avg)
	}
}

func TestSizeHistogramOverflowBucket(t *testing.T) {
	h := NewSizeHistogram()

	// larger than the last bound, lands in the overflow bucket
	h.Add(1 << 32)

	if median := h.Median(); median <= 1<<30 {
		t.Errorf("Expected median beyond the last bound, got %d", median)
	}
}
