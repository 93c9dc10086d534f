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

package noise

import (
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
)

// LaplaceScale returns the scale b = sensitivity/ε of the Laplace noise that
// makes the Laplace mechanism ε-differentially private for a query with the
// given L1 sensitivity. The quotient is computed exactly in decimal.
func LaplaceScale(epsilon, sensitivity float64) (*apd.Decimal, error) {
	if err := checkArgsLaplace(epsilon, sensitivity); err != nil {
		return nil, err
	}
	eps, err := Decimal(epsilon)
	if err != nil {
		return nil, err
	}
	sens, err := Decimal(sensitivity)
	if err != nil {
		return nil, err
	}
	return Quo(sens, eps)
}

// ExponentialCoefficient returns ε/(2·sensitivity), the factor by which the
// exponential mechanism multiplies every score before exponentiating it. The
// quotient is computed exactly in decimal.
func ExponentialCoefficient(epsilon, sensitivity float64) (*apd.Decimal, error) {
	if err := checkArgsLaplace(epsilon, sensitivity); err != nil {
		return nil, err
	}
	eps, err := Decimal(epsilon)
	if err != nil {
		return nil, err
	}
	sens, err := Decimal(sensitivity)
	if err != nil {
		return nil, err
	}
	den, err := Mul(apd.New(2, 0), sens)
	if err != nil {
		return nil, err
	}
	return Quo(eps, den)
}

// LaplaceVariance returns the variance 2b² of a Laplace distribution with scale b.
func LaplaceVariance(scale float64) float64 {
	return 2 * scale * scale
}

// LaplaceConfidenceInterval computes a confidence interval that contains the
// raw value x from which the opened output noisedX of the Laplace mechanism
// was computed with a probability equal to 1 - alpha.
//
// It is a post-processing step on public values and doesn't consume privacy budget.
func LaplaceConfidenceInterval(noisedX, epsilon, sensitivity, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	if err := checkArgsLaplace(epsilon, sensitivity); err != nil {
		return ConfidenceInterval{}, err
	}
	return computeConfidenceIntervalLaplace(noisedX, sensitivity/epsilon, alpha), nil
}

// ChiSquareNoiseBias returns the expected amount by which the noise of a noisy
// χ² statistic inflates the statistic, given the expected count n·pᵢ of every
// class.
//
// Each class receives independent Laplace noise with scale 2/ε, whose
// variance 8/ε² ends up divided by the expected count of the class. The noisy
// statistic is therefore not χ² distributed, and comparing it with a χ²
// reference rejects more often than the noiseless test.
func ChiSquareNoiseBias(epsilon float64, expected []float64) (float64, error) {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return 0, err
	}
	if err := checks.CheckNonEmpty("Expected", len(expected)); err != nil {
		return 0, err
	}
	variance := LaplaceVariance(2 / epsilon)
	var bias float64
	for _, e := range expected {
		if err := checks.CheckSensitivity(e, "ExpectedCount"); err != nil {
			return 0, err
		}
		bias += variance / e
	}
	return bias, nil
}

func checkArgsLaplace(epsilon, sensitivity float64) error {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return err
	}
	return checks.CheckSensitivity(sensitivity)
}

// computeConfidenceIntervalLaplace computes a confidence interval that contains the raw value x from which
// float64 noisedX is computed with a probability equal to 1 - alpha with the given lambda.
func computeConfidenceIntervalLaplace(noisedX float64, lambda, alpha float64) ConfidenceInterval {
	z := inverseCDFLaplace(lambda, alpha/2)
	// Because of the symmetry of the Laplace distribution,
	// -z corresponds to the (1 - alpha/2)-quantile of the distribution,
	// meaning that the interval [z, -z] contains 1-alpha of the probability mass.
	// Deriving the (1 - alpha/2)-quantile from the (alpha/2)-quantile and not vice versa keeps
	// the computation accurate for small alpha, since alpha/2 is more accurately
	// representable as a float64 than 1 - alpha/2.
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}
}

// inverseCDFLaplace computes the quantile z satisfying Pr[Y <= z] = p for a random variable Y
// that is Laplace distributed with the specified lambda where mean is zero.
func inverseCDFLaplace(lambda, p float64) float64 {
	if p < 0.5 {
		return lambda * math.Log(2*p)
	}
	return -lambda * math.Log(2*(1-p))
}
