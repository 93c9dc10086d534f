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

// Package secure defines the capabilities the differentially private
// mechanisms require from a secure arithmetic evaluation engine.
//
// An engine represents values that no single party may observe as opaque
// secret-shared Real and Int handles. The mechanisms declare computations on
// these handles through a Builder and never reveal them: opening a value is a
// capability of the engine, available only to the caller of a mechanism.
//
// Computations are declared as a data-flow graph. Builder.Par declares a batch
// of steps without data dependencies among them, which the engine may evaluate
// in any order, pipelined or concurrently. Everything declared after a Par call
// may depend on the outputs of the whole batch. No step may branch on a secret.
package secure

import (
	"github.com/cockroachdb/apd/v3"
)

// Real is a secret-shared fixed-point real number.
type Real interface {
	// Precision is the number of fractional binary digits of the context the
	// value was produced under.
	Precision() int
}

// Int is a secret-shared integer.
type Int interface {
	// IsSecretInt distinguishes secret integers from other secret values.
	IsSecretInt()
}

// Numeric provides arithmetic on secret integers.
type Numeric interface {
	// Known returns a sharing of the public constant c.
	Known(c int64) Int
	// Input returns a sharing of c, which only the given party knows.
	Input(c int64, party int) Int
	Add(a, b Int) Int
	Sub(a, b Int) Int
	Mult(a, b Int) Int
	// MultKnown returns c·a for a public c.
	MultKnown(c int64, a Int) Int
	// RandomBit returns a secret bit that is 0 or 1 with equal probability.
	RandomBit() Int
	// Sum returns the sum of the given integers, or a sharing of 0 for an
	// empty slice.
	Sum(xs []Int) Int
}

// RealNumeric provides arithmetic on secret fixed-point reals.
type RealNumeric interface {
	// Known returns a sharing of the public constant c, rounded to the
	// fixed-point grid of the context.
	Known(c *apd.Decimal) Real
	// Input returns a sharing of c, which only the given party knows.
	Input(c *apd.Decimal, party int) Real
	Add(a, b Real) Real
	Sub(a, b Real) Real
	Mult(a, b Real) Real
	// MultKnown returns c·a for a public c.
	MultKnown(c *apd.Decimal, a Real) Real
	Div(a, b Real) Real
	// DivKnown returns a/c for a public nonzero c.
	DivKnown(a Real, c *apd.Decimal) Real
	// FromInt converts a secret integer into a secret real.
	FromInt(a Int) Real
	// Leq returns a secret bit that is 1 if a ≤ b and 0 otherwise.
	Leq(a, b Real) Int
	Exp(a Real) Real
	Log(a Real) Real
	// Random returns a secret real drawn uniformly from the multiples of
	// 2^-precision in [0, 1).
	Random(precision int) Real
	// Sum returns the sum of the given reals, or a sharing of 0 for an empty
	// slice.
	Sum(xs []Real) Real
}

// Step is a sub-computation declared against a builder.
type Step func(b Builder)

// Builder declares secret computations against an evaluation engine.
//
// A Builder handed to a Step is scoped to that step: it must not be retained
// or used after the step returns.
type Builder interface {
	// Context returns the read-only evaluation context.
	Context() Context
	Numeric() Numeric
	Real() RealNumeric
	// Par declares steps without data dependencies among each other. It
	// returns once every step has declared its outputs, and everything
	// declared afterwards may depend on them.
	Par(steps ...Step)
	// Seq declares a step that depends on everything declared before it.
	Seq(step Step)
}
