//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package dummy

import (
	"bytes"
	"math"
	"math/big"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/secure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts *Options) *Engine {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.Seed == nil {
		opts.Seed = []byte(t.Name())
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func openReal(t *testing.T, e *Engine, x secure.Real) float64 {
	t.Helper()
	v, err := e.OpenReal(x)
	require.NoError(t, err)
	return v
}

func openInt(t *testing.T, e *Engine, x secure.Int) int64 {
	t.Helper()
	v, err := e.OpenInt(x)
	require.NoError(t, err)
	return v
}

func TestNewDefaults(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultParties, e.Parties())
	assert.Equal(t, secure.Context{Precision: defaultPrecision}, e.Context())
}

func TestNewInvalidOptions(t *testing.T) {
	for _, opts := range []*Options{
		{Parties: -1},
		{Precision: -3},
		{Precision: secure.MaxPrecision + 1},
	} {
		_, err := New(opts)
		assert.ErrorIs(t, err, checks.ErrInvalidParameter, "New(%+v)", opts)
	}
}

func TestSharesReconstruct(t *testing.T) {
	for _, parties := range []int{1, 2, 5} {
		e := newEngine(t, &Options{Parties: parties})
		for _, v := range []int64{0, 1, -1, 42, -123456789, math.MaxInt64, math.MinInt64 + 1} {
			s := e.share(big.NewInt(v))
			require.Len(t, s, parties)
			assert.Equal(t, 0, reconstruct(s).Cmp(big.NewInt(v)), "reconstruct(share(%d)) with %d parties", v, parties)
		}
	}
}

func TestSharesAreMasked(t *testing.T) {
	e := newEngine(t, &Options{Parties: 3})
	a, b := e.share(big.NewInt(7)), e.share(big.NewInt(7))
	for i := range a {
		assert.NotEqual(t, 1, int(a[i].Eq(b[i])), "share %d of two sharings of 7 is equal", i)
	}
}

func TestIntArithmetic(t *testing.T) {
	e := newEngine(t, nil)
	b := e.Builder()
	n := b.Numeric()
	x, y := n.Known(-12), n.Input(5, 1)
	for _, tc := range []struct {
		desc string
		got  secure.Int
		want int64
	}{
		{"Add", n.Add(x, y), -7},
		{"Sub", n.Sub(x, y), -17},
		{"Mult", n.Mult(x, y), -60},
		{"MultKnown", n.MultKnown(-3, y), -15},
		{"Sum", n.Sum([]secure.Int{x, y, y}), -2},
		{"empty Sum", n.Sum(nil), 0},
	} {
		assert.Equal(t, tc.want, openInt(t, e, tc.got), tc.desc)
	}
}

func TestRealArithmetic(t *testing.T) {
	e := newEngine(t, &Options{Precision: 16})
	b := e.Builder()
	r := b.Real()
	x, y := r.Known(dec(t, "2.5")), r.Input(dec(t, "-0.75"), 0)
	for _, tc := range []struct {
		desc string
		got  secure.Real
		want float64
	}{
		{"Add", r.Add(x, y), 1.75},
		{"Sub", r.Sub(x, y), 3.25},
		{"Mult", r.Mult(x, y), -1.875},
		{"MultKnown", r.MultKnown(dec(t, "0.5"), x), 1.25},
		{"Div", r.Div(y, x), -0.3},
		{"DivKnown", r.DivKnown(x, dec(t, "4")), 0.625},
		{"FromInt", r.FromInt(b.Numeric().Known(-4)), -4},
		{"Exp", r.Exp(x), math.Exp(2.5)},
		{"Log", r.Log(x), math.Log(2.5)},
		{"Sum", r.Sum([]secure.Real{x, y, x}), 4.25},
	} {
		assert.InDelta(t, tc.want, openReal(t, e, tc.got), 1e-4, tc.desc)
	}
}

func TestKnownRoundsToGrid(t *testing.T) {
	e := newEngine(t, &Options{Precision: 2})
	got, err := e.OpenRealExact(e.Builder().Real().Known(dec(t, "0.3")))
	require.NoError(t, err)
	assert.Equal(t, "1/4", got.RatString())
}

func TestLeq(t *testing.T) {
	e := newEngine(t, nil)
	r := e.Builder().Real()
	one, two := r.Known(dec(t, "1")), r.Known(dec(t, "2"))
	assert.Equal(t, int64(1), openInt(t, e, r.Leq(one, two)))
	assert.Equal(t, int64(1), openInt(t, e, r.Leq(one, one)))
	assert.Equal(t, int64(0), openInt(t, e, r.Leq(two, one)))
}

func TestLogOfZeroSaturates(t *testing.T) {
	e := newEngine(t, &Options{Precision: 20})
	r := e.Builder().Real()
	got := openReal(t, e, r.Log(r.Known(dec(t, "0"))))
	assert.InDelta(t, -20*math.Ln2, got, 1e-5)
}

func TestArithmeticFailuresAreSticky(t *testing.T) {
	for _, tc := range []struct {
		desc string
		f    func(r secure.RealNumeric)
	}{
		{"division by zero", func(r secure.RealNumeric) { r.Div(r.Known(dec(t, "1")), r.Known(dec(t, "0"))) }},
		{"log of a negative value", func(r secure.RealNumeric) { r.Log(r.Known(dec(t, "-1"))) }},
		{"exp overflow", func(r secure.RealNumeric) { r.Exp(r.Known(dec(t, "1000"))) }},
	} {
		e := newEngine(t, nil)
		r := e.Builder().Real()
		ok := r.Known(dec(t, "3"))
		tc.f(r)
		_, err := e.OpenReal(ok)
		assert.ErrorIs(t, err, ErrArithmetic, tc.desc)
	}
}

func TestInputFromUnknownParty(t *testing.T) {
	e := newEngine(t, &Options{Parties: 3})
	x := e.Builder().Numeric().Input(1, 3)
	_, err := e.OpenInt(x)
	assert.ErrorIs(t, err, checks.ErrInvalidParameter)
}

func TestPrecisionMismatch(t *testing.T) {
	e16 := newEngine(t, &Options{Precision: 16})
	x := e16.Builder().Real().Known(dec(t, "1"))
	// A value of another precision from the same engine can only be forged.
	forged := &secretReal{e: e16, shares: e16.realOf(x).shares, precision: 17}
	r := e16.Builder().Real()
	r.Add(x, forged)
	_, err := e16.OpenReal(x)
	assert.ErrorIs(t, err, checks.ErrPrecisionMismatch)
}

func TestForeignValuesPanic(t *testing.T) {
	a, b := newEngine(t, nil), newEngine(t, nil)
	x := a.Builder().Real().Known(dec(t, "1"))
	assert.Panics(t, func() { b.Builder().Real().Exp(x) })
}

func TestRandomnessOverride(t *testing.T) {
	e := newEngine(t, &Options{
		Precision:  16,
		Randomness: bytes.NewReader([]byte{0x40, 0x00, 0b00000101}),
	})
	b := e.Builder()
	u := b.Real().Random(16)
	assert.Equal(t, 0.25, openReal(t, e, u))
	var bits []int64
	for i := 0; i < 3; i++ {
		bits = append(bits, openInt(t, e, b.Numeric().RandomBit()))
	}
	assert.Equal(t, []int64{1, 0, 1}, bits)
}

func TestRandomRescalesPrecision(t *testing.T) {
	e := newEngine(t, &Options{
		Precision:  16,
		Randomness: bytes.NewReader([]byte{0x03}),
	})
	r := e.Builder().Real()
	// 0b11 with 2 digits of precision is 0.75.
	assert.Equal(t, 0.75, openReal(t, e, r.Random(2)))
	// Scaling 0x8000ff down from 24 to 16 digits drops the lowest byte.
	e2 := newEngine(t, &Options{
		Precision:  16,
		Randomness: bytes.NewReader([]byte{0x80, 0x00, 0xff}),
	})
	assert.Equal(t, 0.5, openReal(t, e2, e2.Builder().Real().Random(24)))
}

func TestRandomIsUniform(t *testing.T) {
	e := newEngine(t, nil)
	r := e.Builder().Real()
	const n = 2000
	var sum float64
	for i := 0; i < n; i++ {
		v := openReal(t, e, r.Random(24))
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
		sum += v
	}
	// The mean of n uniforms has standard deviation sqrt(1/(12n)) ≈ 0.0065.
	assert.InDelta(t, 0.5, sum/n, 0.03)
}

func TestSeededEnginesAgree(t *testing.T) {
	run := func() float64 {
		e, err := New(&Options{Seed: []byte("agree")})
		require.NoError(t, err)
		r := e.Builder().Real()
		return openReal(t, e, r.Log(r.Random(24)))
	}
	assert.Equal(t, run(), run())
}

func TestTrace(t *testing.T) {
	e := newEngine(t, nil)
	b := e.Builder()
	var x, y secure.Real
	b.Par(
		func(b secure.Builder) { x = b.Real().Random(8) },
		func(b secure.Builder) { y = b.Real().Known(dec(t, "1")) },
	)
	b.Seq(func(b secure.Builder) { b.Real().Add(x, y) })
	assert.Equal(t, []Event{
		{Kind: ParEvent, Width: 2, Depth: 0},
		{Kind: OpEvent, Name: "Real.Random", Depth: 1},
		{Kind: OpEvent, Name: "Real.Known", Depth: 1},
		{Kind: SeqEvent, Depth: 0},
		{Kind: OpEvent, Name: "Real.Add", Depth: 1},
	}, e.Trace())
	assert.Equal(t, []string{"Real.Random", "Real.Known", "Real.Add"}, Ops(e.Trace()))
	e.ResetTrace()
	assert.Empty(t, e.Trace())
}

func TestConcurrentBatches(t *testing.T) {
	e := newEngine(t, &Options{Concurrent: true, MaxConcurrency: 4})
	b := e.Builder()
	xs := secure.ParN(b, 64, func(b secure.Builder, i int) secure.Real {
		return b.Real().Exp(b.Real().Known(apd.New(int64(i), -2)))
	})
	sum := secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().Sum(xs) })
	var want float64
	for i := 0; i < 64; i++ {
		want += math.Exp(float64(i) / 100)
	}
	assert.InDelta(t, want, openReal(t, e, sum), 1e-3)
}

func TestLinearOverflowIsReported(t *testing.T) {
	// The field holds magnitudes below 2^126. 1e30 at precision 24 is about
	// 2^123.7, so four of them fit and eight do not.
	big30 := apd.New(1, 30)
	for _, tc := range []struct {
		desc string
		f    func(b secure.Builder)
	}{
		{"Int.Add", func(b secure.Builder) {
			n := b.Numeric()
			x := n.MultKnown(2, n.MultKnown(1<<62, n.Known(1<<62)))
			n.Add(x, x)
		}},
		{"Int.Sub", func(b secure.Builder) {
			n := b.Numeric()
			x := n.MultKnown(2, n.MultKnown(1<<62, n.Known(1<<62)))
			n.Sub(n.MultKnown(-1, x), x)
		}},
		{"Int.MultKnown", func(b secure.Builder) {
			n := b.Numeric()
			n.MultKnown(4, n.MultKnown(1<<62, n.Known(1<<62)))
		}},
		{"Int.Sum", func(b secure.Builder) {
			n := b.Numeric()
			x := n.MultKnown(1<<62, n.Known(1<<62))
			n.Sum([]secure.Int{x, x, x, x})
		}},
		{"Real.Add", func(b secure.Builder) {
			r := b.Real()
			x := r.Known(big30)
			s := r.Sum([]secure.Real{x, x, x, x})
			r.Add(s, s)
		}},
		{"Real.Sub", func(b secure.Builder) {
			r := b.Real()
			x := r.Known(big30)
			s := r.Sum([]secure.Real{x, x, x, x})
			r.Sub(s, r.Known(apd.New(-4, 30)))
		}},
		{"Real.Sum", func(b secure.Builder) {
			r := b.Real()
			x := r.Known(big30)
			r.Sum([]secure.Real{x, x, x, x, x, x, x, x})
		}},
		{"Real.FromInt", func(b secure.Builder) {
			n := b.Numeric()
			b.Real().FromInt(n.MultKnown(1<<62, n.Known(1<<42)))
		}},
	} {
		e := newEngine(t, nil)
		tc.f(e.Builder())
		assert.ErrorIs(t, e.Err(), ErrArithmetic, tc.desc)
	}
}

func TestLinearOpsBelowTheBound(t *testing.T) {
	e := newEngine(t, nil)
	r := e.Builder().Real()
	x := r.Known(apd.New(1, 30))
	s := r.Sum([]secure.Real{x, x, x, x})
	got := openReal(t, e, r.Sub(s, x))
	assert.InEpsilon(t, 3e30, got, 1e-9)
}

func TestConcurrentBatchesShareOperands(t *testing.T) {
	for i := 0; i < 20; i++ {
		e := newEngine(t, &Options{Parties: 3, Concurrent: true})
		b := e.Builder()
		shared := b.Real().Input(apd.New(3, -1), 2)
		one := b.Numeric().Known(1)
		xs := secure.ParN(b, 32, func(b secure.Builder, i int) secure.Real {
			r := b.Real()
			x := r.Input(apd.New(int64(i), 0), i%3)
			y := r.Add(r.Mult(x, shared), r.FromInt(b.Numeric().Add(one, b.Numeric().RandomBit())))
			return r.Sub(y, r.Sum([]secure.Real{shared, shared}))
		})
		bits := secure.ParN(b, 32, func(b secure.Builder, i int) secure.Int {
			return b.Numeric().Sub(b.Numeric().Known(int64(i)), one)
		})
		total := b.Real().Sum(xs)
		// Σ (0.3·i + 1 + bit - 0.6) over i < 32 lies in [161.6, 193.6].
		got := openReal(t, e, total)
		assert.True(t, got > 161.5 && got < 193.7, "sum %f out of range", got)
		assert.Equal(t, int64(30), openInt(t, e, bits[31]))
	}
}
