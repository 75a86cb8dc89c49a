// Package kernel provides the numeric kernels the pipeline is parameterised over.
//
// A kernel is a scalar type (Float or Rat) plus a Kernel implementation providing the
// geometric predicates (orientation, incircle) for vectors of that scalar. Predicates are
// two-tiered: a floating point filter answers whenever its error bound certifies the sign,
// and an exact evaluation runs otherwise. Constructions (intersection points) are computed
// with the scalar's own arithmetic, which is exact for Rat and rounded for Float.
package kernel

import (
	"math"
	"math/big"
)

// Scalar is the arithmetic capability every coordinate type provides.
// Implementations are values: operations return new scalars and never mutate their operands.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	// Quo divides by a non-zero scalar. Callers check the divisor sign first.
	Quo(T) T
	Neg() T
	Sign() int
	Cmp(T) int
	Float64() float64
	IsFinite() bool
}

// Float is a float64 coordinate. It is fast, but constructions round.
type Float float64

func (a Float) Add(b Float) Float { return a + b }
func (a Float) Sub(b Float) Float { return a - b }
func (a Float) Mul(b Float) Float { return a * b }
func (a Float) Quo(b Float) Float { return a / b }
func (a Float) Neg() Float        { return -a }

func (a Float) Sign() int {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	}
	return 0
}

func (a Float) Cmp(b Float) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (a Float) Float64() float64 { return float64(a) }

func (a Float) IsFinite() bool {
	return !math.IsNaN(float64(a)) && !math.IsInf(float64(a), 0)
}

// ratZero is shared and never written to.
var ratZero = new(big.Rat)

// Rat is an exact rational coordinate. The wrapped *big.Rat is never modified after
// construction, so a Rat may be read from any number of goroutines.
type Rat struct {
	r *big.Rat
}

// NewRat converts a float64 to an exact rational. Non-finite values map to zero; mesh
// validation rejects them before any conversion happens.
func NewRat(f float64) Rat {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rat{}
	}
	return Rat{r: new(big.Rat).SetFloat64(f)}
}

// NewRatFrac builds the rational a/b. b must be non-zero.
func NewRatFrac(a, b int64) Rat {
	return Rat{r: big.NewRat(a, b)}
}

func (a Rat) rat() *big.Rat {
	if a.r == nil {
		return ratZero
	}
	return a.r
}

// Big returns a copy of the underlying rational.
func (a Rat) Big() *big.Rat {
	return new(big.Rat).Set(a.rat())
}

func (a Rat) Add(b Rat) Rat { return Rat{r: new(big.Rat).Add(a.rat(), b.rat())} }
func (a Rat) Sub(b Rat) Rat { return Rat{r: new(big.Rat).Sub(a.rat(), b.rat())} }
func (a Rat) Mul(b Rat) Rat { return Rat{r: new(big.Rat).Mul(a.rat(), b.rat())} }
func (a Rat) Quo(b Rat) Rat { return Rat{r: new(big.Rat).Quo(a.rat(), b.rat())} }
func (a Rat) Neg() Rat      { return Rat{r: new(big.Rat).Neg(a.rat())} }
func (a Rat) Sign() int     { return a.rat().Sign() }
func (a Rat) Cmp(b Rat) int { return a.rat().Cmp(b.rat()) }

func (a Rat) Float64() float64 {
	f, _ := a.rat().Float64()
	return f
}

func (a Rat) IsFinite() bool { return true }

func (a Rat) String() string { return a.rat().RatString() }

// abs returns |a| for any scalar.
func abs[T Scalar[T]](a T) T {
	if a.Sign() < 0 {
		return a.Neg()
	}
	return a
}
