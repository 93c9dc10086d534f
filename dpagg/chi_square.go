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

package dpagg

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
	log "github.com/golang/glog"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/noise"
	"github.com/google/differential-privacy/securedp/sampling"
	"github.com/google/differential-privacy/securedp/secure"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoisyChiSquareOptions contains the options of NoisyChiSquare.
type NoisyChiSquareOptions struct {
	Epsilon float64 // Privacy parameter ε. Required.
}

// NoisyChiSquare returns a differentially private χ² goodness-of-fit statistic
// Σ (o_i - n·p_i + z_i)²/(n·p_i) of secret observed class counts o_i against
// secret class probabilities p_i, where n is the public total count and every
// z_i is independent Laplace noise with scale 2/ε.
//
// This follows Gaboardi et al., "Differentially Private Chi-Squared Hypothesis
// Testing: Goodness of Fit and Independence Testing". The noisy statistic is
// not χ² distributed: its mean is inflated by the noise (see
// noise.ChiSquareNoiseBias), so comparing it with a χ² distribution rejects
// more often than the noiseless test does.
//
// The terms of all classes are declared in one parallel batch and summed once
// all of them are available.
func NoisyChiSquare(b secure.Builder, observed []secure.Int, n int64, p []secure.Real, opt *NoisyChiSquareOptions) (secure.Real, error) {
	if opt == nil {
		opt = &NoisyChiSquareOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	if err := checks.CheckNonEmpty("Observed", len(observed)); err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	if err := checks.CheckSameLength("Observed", len(observed), "Probabilities", len(p)); err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	if err := checks.CheckTotalCount(n); err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	if err := secure.CheckPrecision(b, p...); err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	// Every count has sensitivity 1 and the noise is scaled for sensitivity 2.
	scale, err := noise.LaplaceScale(opt.Epsilon, 2)
	if err != nil {
		return nil, fmt.Errorf("NoisyChiSquare: %w", err)
	}
	total := apd.New(n, 0)
	log.V(1).Infof("noisy χ² statistic over %d classes with noise scale %s", len(observed), scale)

	errs := make([]error, len(observed))
	terms := secure.ParMap(b, observed, func(b secure.Builder, i int, o secure.Int) secure.Real {
		var term secure.Real
		term, errs[i] = chiSquareTerm(b, o, p[i], total, scale)
		return term
	})
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("NoisyChiSquare: %w", err)
		}
	}
	return secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().Sum(terms) }), nil
}

func chiSquareTerm(b secure.Builder, o secure.Int, p secure.Real, total, scale *apd.Decimal) (secure.Real, error) {
	r := b.Real()
	z, err := sampling.Laplace(b, scale)
	if err != nil {
		return nil, err
	}
	e := r.MultKnown(total, p)
	t := r.Add(r.Sub(r.FromInt(o), e), z)
	return r.Div(r.Mult(t, t), e), nil
}

// ChiSquarePValue returns the approximate p-value of an opened noisy χ²
// statistic over the given number of classes, i.e. the probability that a χ²
// distributed variable with classes-1 degrees of freedom is at least
// statistic. Because of the noise, the p-value is biased towards rejection.
func ChiSquarePValue(statistic float64, classes int) (float64, error) {
	if classes < 2 {
		return 0, fmt.Errorf("%w: a χ² test needs at least 2 classes, got %d", checks.ErrInvalidParameter, classes)
	}
	if math.IsNaN(statistic) {
		return 0, fmt.Errorf("%w: statistic is NaN", checks.ErrInvalidParameter)
	}
	return distuv.ChiSquared{K: float64(classes - 1)}.Survival(math.Max(0, statistic)), nil
}

// ChiSquareTest reports whether the hypothesis tested by an opened noisy χ²
// statistic over the given number of classes is rejected at significance level
// alpha.
func ChiSquareTest(statistic float64, classes int, alpha float64) (bool, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return false, err
	}
	pValue, err := ChiSquarePValue(statistic, classes)
	if err != nil {
		return false, err
	}
	return pValue < alpha, nil
}
