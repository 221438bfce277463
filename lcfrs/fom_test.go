package lcfrs

import (
	"testing"

	"github.com/talent-works/disco-dop/internal/bitspan"
	"github.com/talent-works/disco-dop/internal/chart"
)

func TestEstimatesNilIsZero(t *testing.T) {
	var e *Estimates
	item := chart.ChartItem{Label: 1, Span: bitspan.NarrowBit(0)}
	if got := e.outside(item, 5); got != 0 {
		t.Fatalf("nil Estimates.outside = %v, want 0", got)
	}
}

func TestEstimatesSX(t *testing.T) {
	// sentence length 5, item covers position 1 only: left=1, length=1,
	// right = 5-1-1 = 3.
	tensor := [][][][]float64{
		{}, // label 0
		{ // label 1
			{}, // a=0
			{ // a=1 (left)
				{}, {}, {}, {7.5}, // b=3 (right) -> c=0
			},
		},
	}
	e := &Estimates{Kind: EstimateSX, Tensor: tensor}
	item := chart.ChartItem{Label: 1, Span: bitspan.NarrowBit(1)}
	if got := e.outside(item, 5); got != 7.5 {
		t.Fatalf("outside = %v, want 7.5", got)
	}
}

func TestEstimatesOutOfRangeIsZero(t *testing.T) {
	tensor := [][][][]float64{{{{1.0}}}}
	e := &Estimates{Kind: EstimateSX, Tensor: tensor}
	item := chart.ChartItem{Label: 99, Span: bitspan.NarrowBit(0)}
	if got := e.outside(item, 5); got != 0 {
		t.Fatalf("out-of-range label lookup = %v, want 0", got)
	}
}
