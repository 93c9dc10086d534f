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

// Package dpagg contains differentially private statistics of secret data.
package dpagg

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	log "github.com/golang/glog"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/mechanism"
	"github.com/google/differential-privacy/securedp/noise"
	"github.com/google/differential-privacy/securedp/secure"
)

// NoisyMeanOptions contains the options of NoisyMean.
type NoisyMeanOptions struct {
	Epsilon float64 // Privacy parameter ε. Required.
	// Bound on the magnitude of every data point. Required.
	UpperBound float64
}

// NoisyMean returns a differentially private mean of secret data points whose
// magnitude is at most opt.UpperBound.
//
// The data is summed and divided by its public size, and Laplace noise
// calibrated to the sensitivity UpperBound/len(data) of the mean is added.
// The sensitivity is rounded to the fixed-point grid of the context of b, see
// MeanSensitivity.
func NoisyMean(b secure.Builder, data []secure.Real, opt *NoisyMeanOptions) (secure.Real, error) {
	if opt == nil {
		opt = &NoisyMeanOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	if err := checks.CheckNonEmpty("Data", len(data)); err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	if err := secure.CheckPrecision(b, data...); err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	sensitivity, err := MeanSensitivity(b.Context(), opt.UpperBound, len(data))
	if err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	eps, err := noise.Decimal(opt.Epsilon)
	if err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	scale, err := noise.Quo(sensitivity, eps)
	if err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	log.V(1).Infof("noisy mean of %d data points with sensitivity %s", len(data), sensitivity)

	count := apd.New(int64(len(data)), 0)
	sum := b.Real().Sum(data)
	mean := secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().DivKnown(sum, count) })
	noisy, err := mechanism.AddLaplaceNoise(b, mean, scale)
	if err != nil {
		return nil, fmt.Errorf("NoisyMean: %w", err)
	}
	return noisy, nil
}

// MeanSensitivity returns the sensitivity upperBound/n of the mean of n data
// points bounded by upperBound, rounded to the fixed-point grid of ctx.
func MeanSensitivity(ctx secure.Context, upperBound float64, n int) (*apd.Decimal, error) {
	if err := checks.CheckSensitivity(upperBound, "UpperBound"); err != nil {
		return nil, err
	}
	if err := checks.CheckNonEmpty("Data", n); err != nil {
		return nil, err
	}
	upper, err := noise.Decimal(upperBound)
	if err != nil {
		return nil, err
	}
	exact, err := noise.Quo(upper, apd.New(int64(n), 0))
	if err != nil {
		return nil, err
	}
	sensitivity, err := ctx.Quantize(exact)
	if err != nil {
		return nil, err
	}
	if sensitivity.IsZero() {
		return nil, fmt.Errorf("%w: UpperBound/n = %s rounds to 0 at precision %d", checks.ErrInvalidParameter, exact, ctx.Precision)
	}
	return sensitivity, nil
}
