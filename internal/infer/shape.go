package infer

import (
	"fmt"
	"strings"
)

// Shape holds tensor dimensions in N,C,H,W order. Negative values are
// dimensions the model leaves dynamic.
type Shape []int64

func NewShape(dims ...int64) Shape {
	return append(Shape(nil), dims...)
}

func (s Shape) dim(i int) int64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func (s Shape) N() int64 { return s.dim(0) }
func (s Shape) C() int64 { return s.dim(1) }
func (s Shape) H() int64 { return s.dim(2) }
func (s Shape) W() int64 { return s.dim(3) }

// Size is the element count, or 0 when any dimension is still dynamic.
func (s Shape) Size() int64 {
	if len(s) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range s {
		if d < 0 {
			return 0
		}
		n *= d
	}
	return n
}

// Static reports whether every dimension is known.
func (s Shape) Static() bool {
	for _, d := range s {
		if d < 0 {
			return false
		}
	}
	return len(s) > 0
}

// WithBatch returns a copy of s with the leading dimension replaced.
func (s Shape) WithBatch(n int) Shape {
	out := NewShape(s...)
	if len(out) > 0 {
		out[0] = int64(n)
	}
	return out
}

func (s Shape) Clone() Shape { return NewShape(s...) }

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d < 0 {
			parts[i] = "?"
			continue
		}
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
