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
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/cronokirby/saferith"
	"github.com/google/differential-privacy/securedp/rand"
)

// primeBits is the bit length of the Mersenne prime 2^127 - 1 all shares live
// modulo. Values are signed: residues above half the prime are negative.
const primeBits = 127

var (
	prime     = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), primeBits), big.NewInt(1))
	halfPrime = new(big.Int).Rsh(prime, 1)
	modulus   = saferith.ModulusFromNat(new(saferith.Nat).SetBig(prime, primeBits))

	// exactContext is used to multiply and divide fixed-point integers by
	// public decimals. It has enough digits for any residue of the prime.
	exactContext = func() *apd.Context {
		c := apd.BaseContext.WithPrecision(200)
		c.Rounding = apd.RoundHalfEven
		return c
	}()
)

// fieldMu serializes all saferith arithmetic. saferith resizes the limbs of
// its operands in place, including those of the shared modulus.
var fieldMu sync.Mutex

type shares []*saferith.Nat

// share splits v into additive shares, one per party.
func (e *Engine) share(v *big.Int) shares {
	fieldMu.Lock()
	defer fieldMu.Unlock()
	out := make(shares, e.parties)
	rest := reduce(v)
	for i := 0; i < e.parties-1; i++ {
		out[i] = rand.ModN(e.masks, modulus)
		rest.ModSub(rest, out[i], modulus)
	}
	out[e.parties-1] = rest
	return out
}

// reconstruct combines additive shares into the signed value they represent.
func reconstruct(s shares) *big.Int {
	fieldMu.Lock()
	sum := new(saferith.Nat).SetUint64(0)
	for _, x := range s {
		sum.ModAdd(sum, x, modulus)
	}
	v := sum.Big()
	fieldMu.Unlock()
	if v.Cmp(halfPrime) > 0 {
		v.Sub(v, prime)
	}
	return v
}

// reduce must be called with fieldMu held.
func reduce(v *big.Int) *saferith.Nat {
	return new(saferith.Nat).SetBig(new(big.Int).Mod(v, prime), primeBits)
}

func addShares(a, b shares) shares {
	fieldMu.Lock()
	defer fieldMu.Unlock()
	out := make(shares, len(a))
	for i := range a {
		out[i] = new(saferith.Nat).ModAdd(a[i], b[i], modulus)
	}
	return out
}

func subShares(a, b shares) shares {
	fieldMu.Lock()
	defer fieldMu.Unlock()
	out := make(shares, len(a))
	for i := range a {
		out[i] = new(saferith.Nat).ModSub(a[i], b[i], modulus)
	}
	return out
}

// scaleShares multiplies every share by the public integer c.
func scaleShares(c *big.Int, a shares) shares {
	fieldMu.Lock()
	defer fieldMu.Unlock()
	cn := reduce(c)
	out := make(shares, len(a))
	for i := range a {
		out[i] = new(saferith.Nat).ModMul(a[i], cn, modulus)
	}
	return out
}

func fits(v *big.Int) bool {
	return new(big.Int).Abs(v).Cmp(halfPrime) <= 0
}

// toFloat returns v·2^-precision.
func toFloat(v *big.Int, precision int) float64 {
	f := new(big.Float).SetInt(v)
	f.SetMantExp(f, -precision)
	x, _ := f.Float64()
	return x
}

// fromFloat returns round(x·2^precision).
func fromFloat(x float64, precision int) (*big.Int, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("%f is not representable", x)
	}
	f := new(big.Float).SetFloat64(x)
	f.SetMantExp(f, precision)
	half := big.NewFloat(0.5)
	if f.Sign() < 0 {
		f.Sub(f, half)
	} else {
		f.Add(f, half)
	}
	v, _ := f.Int(nil)
	return v, nil
}

// mulDecimal returns round(v·c).
func mulDecimal(v *big.Int, c *apd.Decimal) (*big.Int, error) {
	p := new(apd.Decimal)
	if _, err := exactContext.Mul(p, apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), 0), c); err != nil {
		return nil, err
	}
	return roundDecimal(p)
}

// quoDecimal returns round(v/c).
func quoDecimal(v *big.Int, c *apd.Decimal) (*big.Int, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("division of a secret by the public constant 0")
	}
	q := new(apd.Decimal)
	if _, err := exactContext.Quo(q, apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), 0), c); err != nil {
		return nil, err
	}
	return roundDecimal(q)
}

func roundDecimal(d *apd.Decimal) (*big.Int, error) {
	if _, err := exactContext.RoundToIntegralValue(d, d); err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(d.Text('f'), 10)
	if !ok {
		return nil, fmt.Errorf("couldn't convert %s to an integer", d)
	}
	return v, nil
}
