//
// Copyright 2023 Google LLC
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

// Package stattestutils provides basic statistical utility functions and
// goodness-of-fit tests for validating samplers empirically.
//
// This package is not optimized for performance or speed and is only intended
// to be used in tests.
package stattestutils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SampleMean returns the mean of a slice, calculated as the average over the
// values in the slice. The mean of an empty slice is 0.
func SampleMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SampleVariance returns the variance of a slice, calculated as the sum of
// squares of the distance to the mean of each of the values, divided by the
// number of values.
func SampleVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, variance := stat.PopMeanVariance(values, nil)
	return variance
}

// Frequencies returns how often each of the outcomes 0, ..., k-1 occurs in
// outcomes. Outcomes outside of [0, k) are ignored.
func Frequencies(outcomes []int64, k int) []float64 {
	counts := make([]float64, k)
	for _, o := range outcomes {
		if o >= 0 && o < int64(k) {
			counts[o]++
		}
	}
	return counts
}

// ChiSquareGoodnessOfFit returns Pearson's χ² statistic of the observed
// counts against the given probabilities, and the probability that a χ²
// distributed variable with len(observed)-1 degrees of freedom is at least as
// large. The probabilities are normalized before use.
func ChiSquareGoodnessOfFit(observed, probabilities []float64) (statistic, pValue float64) {
	n := floats.Sum(observed)
	total := floats.Sum(probabilities)
	expected := make([]float64, len(probabilities))
	for i, p := range probabilities {
		expected[i] = n * p / total
	}
	statistic = stat.ChiSquare(observed, expected)
	return statistic, ChiSquarePValue(statistic, len(observed)-1)
}

// ChiSquarePValue returns the probability that a χ² distributed variable
// with the given degrees of freedom is at least statistic.
func ChiSquarePValue(statistic float64, degreesOfFreedom int) float64 {
	return distuv.ChiSquared{K: float64(degreesOfFreedom)}.Survival(statistic)
}

// KolmogorovSmirnov returns the Kolmogorov–Smirnov distance between the
// empirical distribution of samples and the distribution with the given CDF,
// and the asymptotic p-value of observing a distance at least as large.
func KolmogorovSmirnov(samples []float64, cdf func(float64) float64) (distance, pValue float64) {
	n := len(samples)
	if n == 0 {
		return 0, 1
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	for i, x := range sorted {
		f := cdf(x)
		distance = math.Max(distance, math.Max(float64(i+1)/float64(n)-f, f-float64(i)/float64(n)))
	}
	sqrtN := math.Sqrt(float64(n))
	return distance, kolmogorovSurvival((sqrtN + 0.12 + 0.11/sqrtN) * distance)
}

// kolmogorovSurvival returns Pr[K > lambda] for the Kolmogorov distribution K,
// computed with its alternating series.
func kolmogorovSurvival(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return math.Min(1, math.Max(0, 2*sum))
}
