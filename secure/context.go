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

package secure

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
)

// MaxPrecision is the largest supported number of fractional binary digits.
const MaxPrecision = 128

// fixedPointContext has enough digits to represent d·2^MaxPrecision exactly
// for any public parameter d of a mechanism.
var fixedPointContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(200)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// Context is the read-only evaluation context shared by all values of one
// mechanism invocation.
type Context struct {
	// Precision is the number of fractional binary digits of every secret
	// real: reals are multiples of 2^-Precision.
	Precision int
}

// Validate returns an error if the context cannot be used for evaluation.
func (c Context) Validate() error {
	if c.Precision < 1 || c.Precision > MaxPrecision {
		return fmt.Errorf("%w: Precision is %d, must be within [1, %d]", checks.ErrInvalidParameter, c.Precision, MaxPrecision)
	}
	return nil
}

func (c Context) scale() *apd.Decimal {
	d, _, err := apd.NewFromString(new(big.Int).Lsh(big.NewInt(1), uint(c.Precision)).String())
	if err != nil {
		// A decimal integer literal always parses.
		panic(err)
	}
	return d
}

// FixedPoint returns the integer round(d·2^Precision) that represents d on the
// fixed-point grid of the context. Ties round to even.
func (c Context) FixedPoint(d *apd.Decimal) (*big.Int, error) {
	scaled := new(apd.Decimal)
	if _, err := fixedPointContext.Mul(scaled, d, c.scale()); err != nil {
		return nil, fmt.Errorf("couldn't scale %s to precision %d: %w", d, c.Precision, err)
	}
	if _, err := fixedPointContext.RoundToIntegralValue(scaled, scaled); err != nil {
		return nil, fmt.Errorf("couldn't round %s: %w", scaled, err)
	}
	v, ok := new(big.Int).SetString(scaled.Text('f'), 10)
	if !ok {
		return nil, fmt.Errorf("couldn't convert %s to an integer", scaled)
	}
	return v, nil
}

// Quantize rounds d to the nearest multiple of 2^-Precision. The result is
// exact: every multiple of 2^-Precision has a finite decimal expansion.
func (c Context) Quantize(d *apd.Decimal) (*apd.Decimal, error) {
	v, err := c.FixedPoint(d)
	if err != nil {
		return nil, err
	}
	q := new(apd.Decimal)
	if _, err := fixedPointContext.Quo(q, apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), 0), c.scale()); err != nil {
		return nil, fmt.Errorf("couldn't compute %v/2^%d: %w", v, c.Precision, err)
	}
	return q, nil
}

// CheckPrecision returns an error wrapping checks.ErrPrecisionMismatch if one
// of the given reals was produced under a different precision than the
// context of b.
func CheckPrecision(b Builder, xs ...Real) error {
	want := b.Context().Precision
	for _, x := range xs {
		if err := checks.CheckPrecision(want, x.Precision()); err != nil {
			return err
		}
	}
	return nil
}
