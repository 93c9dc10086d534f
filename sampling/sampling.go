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

// Package sampling draws secret samples from probability distributions using
// only operations of a secure evaluation engine.
//
// The samplers never read local randomness and never branch on a secret: all
// entropy comes from the engine's secret random bits and reals, and every
// declared operation is evaluated regardless of the sampled value.
package sampling

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/secure"
)

// Uniform returns a secret real drawn uniformly from the multiples of
// 2^-precision in [0, 1), at the precision of the context of b.
func Uniform(b secure.Builder) secure.Real {
	return b.Real().Random(b.Context().Precision)
}

// Rademacher returns a secret real that is +1 or -1 with equal probability.
func Rademacher(b secure.Builder) secure.Real {
	n := b.Numeric()
	bit := n.RandomBit()
	return b.Real().FromInt(n.Sub(n.MultKnown(2, bit), n.Known(1)))
}

// Exponential returns scale·log(u) for a uniform u, i.e. the negative of an
// exponentially distributed sample with the given public scale. Its sign is
// meant for combination with a Rademacher sign in Laplace.
func Exponential(b secure.Builder, scale *apd.Decimal) (secure.Real, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	return exponential(b, scale), nil
}

// ExponentialSecret is Exponential for a secret scale. The scale must be
// strictly positive, which the caller is responsible for.
func ExponentialSecret(b secure.Builder, scale secure.Real) (secure.Real, error) {
	if err := secure.CheckPrecision(b, scale); err != nil {
		return nil, err
	}
	return exponentialSecret(b, scale), nil
}

// Laplace returns a secret sample of the Laplace distribution centered at 0
// with the given public scale.
//
// The sample is the product of an exponential magnitude and an independent
// Rademacher sign. Both are declared in one parallel batch and multiplied once
// both are available.
func Laplace(b secure.Builder, scale *apd.Decimal) (secure.Real, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	return laplace(b, func(b secure.Builder) secure.Real { return exponential(b, scale) }), nil
}

// LaplaceSecret is Laplace for a secret scale. The scale must be strictly
// positive, which the caller is responsible for.
func LaplaceSecret(b secure.Builder, scale secure.Real) (secure.Real, error) {
	if err := secure.CheckPrecision(b, scale); err != nil {
		return nil, err
	}
	return laplace(b, func(b secure.Builder) secure.Real { return exponentialSecret(b, scale) }), nil
}

func exponential(b secure.Builder, scale *apd.Decimal) secure.Real {
	r := b.Real()
	return r.MultKnown(scale, r.Log(Uniform(b)))
}

func exponentialSecret(b secure.Builder, scale secure.Real) secure.Real {
	r := b.Real()
	return r.Mult(scale, r.Log(Uniform(b)))
}

func laplace(b secure.Builder, magnitude func(b secure.Builder) secure.Real) secure.Real {
	e, s := secure.Par2(b, magnitude, Rademacher)
	return secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().Mult(e, s) })
}

func checkScale(scale *apd.Decimal) error {
	if scale == nil || scale.Form != apd.Finite || scale.Sign() <= 0 {
		return fmt.Errorf("%w: Scale is %v, must be strictly positive and finite", checks.ErrInvalidParameter, scale)
	}
	return nil
}
