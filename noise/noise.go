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

// Package noise contains the public-parameter arithmetic of the secure
// mechanisms: exact noise scales derived from ε and sensitivities, and
// post-processing helpers that callers apply to opened results.
//
// Nothing in this package touches secret values.
package noise

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
)

// decimalDigits is the number of significant digits used for public noise
// parameters. It is well above the 17 digits needed to represent any float64,
// so quotients such as sensitivity/ε are exact to the fixed-point grid of
// every supported engine precision.
const decimalDigits = 100

var decimalContext = apd.BaseContext.WithPrecision(decimalDigits)

// ConfidenceInterval holds lower and upper bounds as float64 for the confidence interval.
type ConfidenceInterval struct {
	LowerBound, UpperBound float64
}

// Decimal returns the shortest decimal that round-trips to x. Public
// parameters given as float64 are converted with Decimal before any
// arithmetic, so 0.1 is treated as exactly one tenth.
func Decimal(x float64) (*apd.Decimal, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("%w: %f has no decimal representation", checks.ErrInvalidParameter, x)
	}
	d, err := new(apd.Decimal).SetFloat64(x)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't convert %f to a decimal: %v", checks.ErrInvalidParameter, x, err)
	}
	return d, nil
}

// Quo returns num/den computed with the package's decimal precision.
func Quo(num, den *apd.Decimal) (*apd.Decimal, error) {
	if den.IsZero() {
		return nil, fmt.Errorf("%w: division of %s by zero", checks.ErrInvalidParameter, num)
	}
	q := new(apd.Decimal)
	if _, err := decimalContext.Quo(q, num, den); err != nil {
		return nil, fmt.Errorf("couldn't compute %s/%s: %w", num, den, err)
	}
	return q, nil
}

// Mul returns x·y computed with the package's decimal precision.
func Mul(x, y *apd.Decimal) (*apd.Decimal, error) {
	p := new(apd.Decimal)
	if _, err := decimalContext.Mul(p, x, y); err != nil {
		return nil, fmt.Errorf("couldn't compute %s·%s: %w", x, y, err)
	}
	return p, nil
}
