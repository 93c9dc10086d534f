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
	"fmt"
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/rand"
	"github.com/google/differential-privacy/securedp/secure"
	"golang.org/x/sync/errgroup"
)

type secretInt struct {
	e      *Engine
	shares shares
}

func (*secretInt) IsSecretInt() {}

type secretReal struct {
	e         *Engine
	shares    shares
	precision int
}

func (r *secretReal) Precision() int { return r.precision }

func (e *Engine) intOf(x secure.Int) *secretInt {
	v, ok := x.(*secretInt)
	if !ok || v == nil || v.e != e {
		panic(fmt.Sprintf("dummy: secret integer %T was not produced by this engine", x))
	}
	return v
}

func (e *Engine) realOf(x secure.Real) *secretReal {
	v, ok := x.(*secretReal)
	if !ok || v == nil || v.e != e {
		panic(fmt.Sprintf("dummy: secret real %T was not produced by this engine", x))
	}
	return v
}

type builder struct {
	e     *Engine
	depth int
}

func (b *builder) Context() secure.Context      { return b.e.ctx }
func (b *builder) Numeric() secure.Numeric      { return numeric{b} }
func (b *builder) Real() secure.RealNumeric     { return realNumeric{b} }
func (b *builder) child() *builder              { return &builder{e: b.e, depth: b.depth + 1} }
func (b *builder) op(name string)               { b.e.record(Event{Kind: OpEvent, Name: name, Depth: b.depth}) }
func (b *builder) failf(f string, a ...any)     { b.e.fail(fmt.Errorf(f, a...)) }
func (b *builder) newInt(v *big.Int) secure.Int { return b.e.newInt(v) }

func (b *builder) Par(steps ...secure.Step) {
	b.e.record(Event{Kind: ParEvent, Width: len(steps), Depth: b.depth})
	c := b.child()
	if !b.e.concurrent {
		for _, step := range steps {
			step(c)
		}
		return
	}
	var g errgroup.Group
	if b.e.maxConcurrency > 0 {
		g.SetLimit(b.e.maxConcurrency)
	}
	for _, step := range steps {
		step := step
		g.Go(func() error {
			step(c)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *builder) Seq(step secure.Step) {
	b.e.record(Event{Kind: SeqEvent, Depth: b.depth})
	step(b.child())
}

func (e *Engine) newInt(v *big.Int) secure.Int {
	e.checkInt(v)
	return &secretInt{e: e, shares: e.share(v)}
}

func (e *Engine) newReal(v *big.Int) secure.Real {
	e.checkReal(v)
	return &secretReal{e: e, shares: e.share(v), precision: e.ctx.Precision}
}

// checkInt and checkReal record an overflow of the value an operation
// produces. Linear operations act on the shares alone, which would silently
// wrap around the prime.
func (e *Engine) checkInt(v *big.Int) {
	if !fits(v) {
		e.fail(fmt.Errorf("%w: integer %v overflows the field", ErrArithmetic, v))
	}
}

func (e *Engine) checkReal(v *big.Int) {
	if !fits(v) {
		e.fail(fmt.Errorf("%w: fixed-point value %v overflows the field", ErrArithmetic, v))
	}
}

// realValue reconstructs a secret real for the ideal functionality. Reals
// produced under another precision are reported but still evaluated.
func (b *builder) realValue(x secure.Real) *big.Int {
	r := b.e.realOf(x)
	if err := checks.CheckPrecision(b.e.ctx.Precision, r.precision); err != nil {
		b.e.fail(err)
	}
	return reconstruct(r.shares)
}

func (b *builder) realShares(x secure.Real) shares {
	r := b.e.realOf(x)
	if err := checks.CheckPrecision(b.e.ctx.Precision, r.precision); err != nil {
		b.e.fail(err)
	}
	return r.shares
}

func (b *builder) checkParty(party int) {
	if party < 0 || party >= b.e.parties {
		b.e.fail(fmt.Errorf("%w: party %d does not exist, there are %d parties", checks.ErrInvalidParameter, party, b.e.parties))
	}
}

type numeric struct{ b *builder }

func (n numeric) Known(c int64) secure.Int {
	n.b.op("Int.Known")
	return n.b.newInt(big.NewInt(c))
}

func (n numeric) Input(c int64, party int) secure.Int {
	n.b.op("Int.Input")
	n.b.checkParty(party)
	return n.b.newInt(big.NewInt(c))
}

func (n numeric) Add(x, y secure.Int) secure.Int {
	n.b.op("Int.Add")
	e := n.b.e
	xs, ys := e.intOf(x).shares, e.intOf(y).shares
	e.checkInt(new(big.Int).Add(reconstruct(xs), reconstruct(ys)))
	return &secretInt{e: e, shares: addShares(xs, ys)}
}

func (n numeric) Sub(x, y secure.Int) secure.Int {
	n.b.op("Int.Sub")
	e := n.b.e
	xs, ys := e.intOf(x).shares, e.intOf(y).shares
	e.checkInt(new(big.Int).Sub(reconstruct(xs), reconstruct(ys)))
	return &secretInt{e: e, shares: subShares(xs, ys)}
}

func (n numeric) Mult(x, y secure.Int) secure.Int {
	n.b.op("Int.Mult")
	e := n.b.e
	return n.b.newInt(new(big.Int).Mul(reconstruct(e.intOf(x).shares), reconstruct(e.intOf(y).shares)))
}

func (n numeric) MultKnown(c int64, x secure.Int) secure.Int {
	n.b.op("Int.MultKnown")
	e := n.b.e
	xs := e.intOf(x).shares
	e.checkInt(new(big.Int).Mul(big.NewInt(c), reconstruct(xs)))
	return &secretInt{e: e, shares: scaleShares(big.NewInt(c), xs)}
}

func (n numeric) RandomBit() secure.Int {
	n.b.op("Int.RandomBit")
	return n.b.newInt(big.NewInt(int64(n.b.e.randomBit())))
}

func (n numeric) Sum(xs []secure.Int) secure.Int {
	n.b.op("Int.Sum")
	e := n.b.e
	acc, total := e.share(new(big.Int)), new(big.Int)
	for _, x := range xs {
		s := e.intOf(x).shares
		acc = addShares(acc, s)
		total.Add(total, reconstruct(s))
	}
	e.checkInt(total)
	return &secretInt{e: e, shares: acc}
}

type realNumeric struct{ b *builder }

func (r realNumeric) known(c *apd.Decimal) secure.Real {
	v, err := r.b.e.ctx.FixedPoint(c)
	if err != nil {
		r.b.e.fail(fmt.Errorf("%w: %v", ErrArithmetic, err))
		v = new(big.Int)
	}
	return r.b.e.newReal(v)
}

func (r realNumeric) Known(c *apd.Decimal) secure.Real {
	r.b.op("Real.Known")
	return r.known(c)
}

func (r realNumeric) Input(c *apd.Decimal, party int) secure.Real {
	r.b.op("Real.Input")
	r.b.checkParty(party)
	return r.known(c)
}

func (r realNumeric) Add(x, y secure.Real) secure.Real {
	r.b.op("Real.Add")
	e := r.b.e
	xs, ys := r.b.realShares(x), r.b.realShares(y)
	e.checkReal(new(big.Int).Add(reconstruct(xs), reconstruct(ys)))
	return &secretReal{e: e, shares: addShares(xs, ys), precision: e.ctx.Precision}
}

func (r realNumeric) Sub(x, y secure.Real) secure.Real {
	r.b.op("Real.Sub")
	e := r.b.e
	xs, ys := r.b.realShares(x), r.b.realShares(y)
	e.checkReal(new(big.Int).Sub(reconstruct(xs), reconstruct(ys)))
	return &secretReal{e: e, shares: subShares(xs, ys), precision: e.ctx.Precision}
}

func (r realNumeric) Mult(x, y secure.Real) secure.Real {
	r.b.op("Real.Mult")
	p := new(big.Int).Mul(r.b.realValue(x), r.b.realValue(y))
	return r.b.e.newReal(p.Rsh(p, uint(r.b.e.ctx.Precision)))
}

func (r realNumeric) MultKnown(c *apd.Decimal, x secure.Real) secure.Real {
	r.b.op("Real.MultKnown")
	v, err := mulDecimal(r.b.realValue(x), c)
	if err != nil {
		r.b.failf("%w: couldn't multiply by %s: %v", ErrArithmetic, c, err)
		v = new(big.Int)
	}
	return r.b.e.newReal(v)
}

func (r realNumeric) Div(x, y secure.Real) secure.Real {
	r.b.op("Real.Div")
	num, den := r.b.realValue(x), r.b.realValue(y)
	if den.Sign() == 0 {
		r.b.failf("%w: division by a secret zero", ErrArithmetic)
		return r.b.e.newReal(new(big.Int))
	}
	num.Lsh(num, uint(r.b.e.ctx.Precision))
	return r.b.e.newReal(num.Quo(num, den))
}

func (r realNumeric) DivKnown(x secure.Real, c *apd.Decimal) secure.Real {
	r.b.op("Real.DivKnown")
	v, err := quoDecimal(r.b.realValue(x), c)
	if err != nil {
		r.b.failf("%w: couldn't divide by %s: %v", ErrArithmetic, c, err)
		v = new(big.Int)
	}
	return r.b.e.newReal(v)
}

func (r realNumeric) FromInt(x secure.Int) secure.Real {
	r.b.op("Real.FromInt")
	e := r.b.e
	scale := new(big.Int).Lsh(big.NewInt(1), uint(e.ctx.Precision))
	xs := e.intOf(x).shares
	e.checkReal(new(big.Int).Mul(scale, reconstruct(xs)))
	return &secretReal{e: e, shares: scaleShares(scale, xs), precision: e.ctx.Precision}
}

func (r realNumeric) Leq(x, y secure.Real) secure.Int {
	r.b.op("Real.Leq")
	if r.b.realValue(x).Cmp(r.b.realValue(y)) <= 0 {
		return r.b.newInt(big.NewInt(1))
	}
	return r.b.newInt(big.NewInt(0))
}

func (r realNumeric) Exp(x secure.Real) secure.Real {
	r.b.op("Real.Exp")
	k := r.b.e.ctx.Precision
	v, err := fromFloat(math.Exp(toFloat(r.b.realValue(x), k)), k)
	if err != nil {
		r.b.failf("%w: exp overflows: %v", ErrArithmetic, err)
		v = new(big.Int)
	}
	return r.b.e.newReal(v)
}

// Log of the secret zero saturates to log(2^-precision), the logarithm of the
// smallest positive real of the context.
func (r realNumeric) Log(x secure.Real) secure.Real {
	r.b.op("Real.Log")
	k := r.b.e.ctx.Precision
	v := r.b.realValue(x)
	switch v.Sign() {
	case -1:
		r.b.failf("%w: logarithm of a negative secret", ErrArithmetic)
		return r.b.e.newReal(new(big.Int))
	case 0:
		v = big.NewInt(1)
	}
	y, err := fromFloat(math.Log(toFloat(v, k)), k)
	if err != nil {
		r.b.failf("%w: log fails: %v", ErrArithmetic, err)
		y = new(big.Int)
	}
	return r.b.e.newReal(y)
}

func (r realNumeric) Random(precision int) secure.Real {
	r.b.op("Real.Random")
	k := r.b.e.ctx.Precision
	if precision < 1 {
		r.b.failf("%w: random real with precision %d", checks.ErrInvalidParameter, precision)
		return r.b.e.newReal(new(big.Int))
	}
	v := rand.Bits(r.b.e.randomness, precision)
	if precision <= k {
		v.Lsh(v, uint(k-precision))
	} else {
		v.Rsh(v, uint(precision-k))
	}
	return r.b.e.newReal(v)
}

func (r realNumeric) Sum(xs []secure.Real) secure.Real {
	r.b.op("Real.Sum")
	e := r.b.e
	acc, total := e.share(new(big.Int)), new(big.Int)
	for _, x := range xs {
		s := r.b.realShares(x)
		acc = addShares(acc, s)
		total.Add(total, reconstruct(s))
	}
	e.checkReal(total)
	return &secretReal{e: e, shares: acc, precision: e.ctx.Precision}
}
