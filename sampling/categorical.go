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

package sampling

import (
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/secure"
)

// Categorical returns a secret index i drawn with probability p[i]/Σp.
//
// If normalized is set, the weights must sum to 1 and the sum is not
// computed. The weights must be nonnegative with a nonzero sum; neither can be
// checked on secret weights, see checks.CheckDistribution for callers that
// know them in the clear.
//
// A uniform r is compared against the cumulative sums c_i = p[0] + ... + p[i],
// and the result is the number of sums strictly below r. Index i therefore
// owns the interval (c_{i-1}, c_i], and r = c_i resolves to i. Every
// comparison is evaluated. The last sum is the total weight, which r never
// exceeds, so it is not compared and the result is always a valid index.
func Categorical(b secure.Builder, p []secure.Real, normalized bool) (secure.Int, error) {
	if err := checks.CheckNonEmpty("Probabilities", len(p)); err != nil {
		return nil, err
	}
	if err := secure.CheckPrecision(b, p...); err != nil {
		return nil, err
	}
	n := len(p)

	var r secure.Real
	if normalized {
		r = Uniform(b)
	} else {
		u, total := secure.Par2(b, Uniform, func(b secure.Builder) secure.Real { return b.Real().Sum(p) })
		r = secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().Mult(u, total) })
	}

	// Strict prefix order.
	c := make([]secure.Real, n-1)
	b.Seq(func(b secure.Builder) {
		acc := p[0]
		for i := range c {
			if i > 0 {
				acc = b.Real().Add(acc, p[i])
			}
			c[i] = acc
		}
	})

	// leq_i = [r ≤ c_i], so n-1 - Σ leq_i counts the sums strictly below r.
	leq := secure.ParMap(b, c, func(b secure.Builder, _ int, ci secure.Real) secure.Int {
		return b.Real().Leq(r, ci)
	})
	return secure.Seq(b, func(b secure.Builder) secure.Int {
		num := b.Numeric()
		return num.Sub(num.Known(int64(n-1)), num.Sum(leq))
	}), nil
}
