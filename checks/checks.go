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

// Package checks contains checks for the public parameters of the secure
// differentially private mechanisms.
//
// Every check runs on clear, public values before a mechanism declares its
// first secret step. A failed check therefore never depends on a secret and a
// mechanism either runs completely or not at all.
package checks

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// Error kinds returned by the checks. Use errors.Is to classify an error.
var (
	// ErrInvalidParameter reports a public parameter outside its domain, e.g. a
	// nonpositive epsilon, an empty domain or collections of mismatched lengths.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDegenerateDistribution reports a probability vector whose weights sum to zero.
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	// ErrPrecisionMismatch reports secret values produced under different
	// fixed-point precisions.
	ErrPrecisionMismatch = errors.New("precision mismatch")
)

const (
	epsilonName     = "Epsilon"
	sensitivityName = "Sensitivity"

	// Epsilons above this value give essentially no privacy. They are accepted
	// but logged.
	largeEpsilon = 1 << 10
)

func invalidParameter(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("there should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return invalidParameter("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	if epsilon > largeEpsilon {
		log.Warningf("%s is %f, the result will carry almost no noise", epsName, epsilon)
	}
	return nil
}

// CheckSensitivity returns an error if the sensitivity is nonpositive or +∞.
// The optional name is used in the error message instead of "Sensitivity".
func CheckSensitivity(sensitivity float64, name ...string) error {
	sensName, err := verifyName(sensitivityName, name)
	if err != nil {
		return err
	}
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return invalidParameter("%s is %f, must be strictly positive and finite", sensName, sensitivity)
	}
	return nil
}

// CheckDomainSize returns an error if the domain of an exponential mechanism is empty.
func CheckDomainSize(domainSize int) error {
	if domainSize <= 0 {
		return invalidParameter("DomainSize is %d, must be at least 1", domainSize)
	}
	return nil
}

// CheckNonEmpty returns an error if a collection passed as the named argument is empty.
func CheckNonEmpty(name string, size int) error {
	if size <= 0 {
		return invalidParameter("%s is empty, must contain at least one element", name)
	}
	return nil
}

// CheckSameLength returns an error if two collections that are combined
// element-wise have different lengths.
func CheckSameLength(name1 string, len1 int, name2 string, len2 int) error {
	if len1 != len2 {
		return invalidParameter("%s has %d elements and %s has %d, they must have the same length", name1, len1, name2, len2)
	}
	return nil
}

// CheckTotalCount returns an error if the total count of a χ² test is nonpositive.
func CheckTotalCount(n int64) error {
	if n <= 0 {
		return invalidParameter("TotalCount is %d, must be strictly positive", n)
	}
	return nil
}

// CheckAlpha returns an error if the supplied alpha is not between 0 and 1.
func CheckAlpha(alpha float64) error {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return invalidParameter("Alpha is %f, must be within (0, 1) and finite", alpha)
	}
	return nil
}

// CheckPrecision returns an error if a secret value was produced under a
// different fixed-point precision than the one of the active context.
func CheckPrecision(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: value has precision %d, context has precision %d", ErrPrecisionMismatch, got, want)
	}
	return nil
}

// CheckDistribution returns an error if the clear weights of a probability
// vector cannot be sampled from. Callers that know the weights in the clear use
// it to guard the categorical sampler, which cannot detect such vectors itself.
func CheckDistribution(weights []float64) error {
	if err := CheckNonEmpty("Weights", len(weights)); err != nil {
		return err
	}
	var sum float64
	zeros := 0
	for i, w := range weights {
		if w < 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			return invalidParameter("Weight %d is %f, must be nonnegative and finite", i, w)
		}
		if w == 0 {
			zeros++
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("%w: all %d weights are zero", ErrDegenerateDistribution, len(weights))
	}
	if zeros > 0 {
		log.Warningf("%d of %d weights are zero, these outcomes are never sampled", zeros, len(weights))
	}
	return nil
}
