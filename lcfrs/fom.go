package lcfrs

import "github.com/talent-works/disco-dop/internal/chart"

// EstimateKind selects the shape of an outside-estimate tensor.
type EstimateKind int

const (
	// EstimateSX indexes the tensor by (label, left, right, 0).
	EstimateSX EstimateKind = iota
	// EstimateSXlrgaps indexes the tensor by (label, length, left+right, gaps).
	EstimateSXlrgaps
)

// Estimates is the optional figure-of-merit outside-estimate table used to
// guide agenda priority. Tensor is indexed [label][a][b][c] per Kind; see
// spec.md section 4.2 for the index derivation.
type Estimates struct {
	Kind   EstimateKind
	Tensor [][][][]float64
}

// InfDropThreshold is the log-space magic number (spec.md sections 4.2, 6,
// 9) past which a candidate's score is assumed to have underflowed double
// precision and is dropped rather than admitted.
const InfDropThreshold = 300.0

// outside returns the FOM outside-estimate contribution for item, or 0 if
// e is nil. sentLen is the input sentence's length, needed to recover the
// "uncovered positions to the right" term of the SX index.
func (e *Estimates) outside(item chart.ChartItem, sentLen int) float64 {
	if e == nil {
		return 0
	}
	label := int(item.Label)
	length := item.Span.PopCount()
	left := item.Span.NextSet(0)
	if left < 0 {
		left = 0
	}

	var a, b, c int
	switch e.Kind {
	case EstimateSX:
		right := sentLen - length - left
		a, b, c = left, right, 0
	case EstimateSXlrgaps:
		bitlen := item.Span.BitLength()
		gaps := bitlen - length - left
		right := sentLen - length - left - gaps
		a, b, c = length, left+right, gaps
	}
	return indexTensor(e.Tensor, label, a, b, c)
}

func indexTensor(t [][][][]float64, a, b, c, d int) float64 {
	if a < 0 || a >= len(t) {
		return 0
	}
	ta := t[a]
	if b < 0 || b >= len(ta) {
		return 0
	}
	tb := ta[b]
	if c < 0 || c >= len(tb) {
		return 0
	}
	tc := tb[c]
	if d < 0 || d >= len(tc) {
		return 0
	}
	return tc[d]
}
