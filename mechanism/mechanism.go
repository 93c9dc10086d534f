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

// Package mechanism provides the Exponential and the Laplace mechanism on
// secret values.
//
// Both mechanisms are declared against a secure.Builder and yield a secret
// result that is ε-differentially private once opened. The privacy
// parameters are public and validated before any secret step is declared.
package mechanism

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	log "github.com/golang/glog"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/noise"
	"github.com/google/differential-privacy/securedp/sampling"
	"github.com/google/differential-privacy/securedp/secure"
)

// ScoreFunction scores the candidates 0, ..., DomainSize()-1 of an
// exponential mechanism.
type ScoreFunction interface {
	// DomainSize is the number of candidates.
	DomainSize() int
	// Score declares the secret score of candidate t. It is called once per
	// candidate, in a single parallel batch.
	Score(b secure.Builder, t int) secure.Real
	// Sensitivity bounds how much the score of any candidate changes when a
	// single record of the underlying data changes.
	Sensitivity() float64
}

// ExponentialOptions contains the options of the exponential mechanism.
type ExponentialOptions struct {
	Epsilon float64 // Privacy parameter ε. Required.
	Score   ScoreFunction
}

// Exponential returns a secret candidate t drawn with probability proportional
// to exp(ε·score(t)/(2·sensitivity)).
//
// All scores are declared in one parallel batch, then all weights in a second
// one, and the unnormalized weights are finally passed to the categorical
// sampler, which rescales its uniform draw by their sum.
func Exponential(b secure.Builder, opt *ExponentialOptions) (secure.Int, error) {
	if opt == nil {
		opt = &ExponentialOptions{}
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon); err != nil {
		return nil, fmt.Errorf("Exponential: %w", err)
	}
	if opt.Score == nil {
		return nil, fmt.Errorf("Exponential: %w: Score is nil", checks.ErrInvalidParameter)
	}
	n := opt.Score.DomainSize()
	if err := checks.CheckDomainSize(n); err != nil {
		return nil, fmt.Errorf("Exponential: %w", err)
	}
	sensitivity := opt.Score.Sensitivity()
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return nil, fmt.Errorf("Exponential: %w", err)
	}
	coefficient, err := noise.ExponentialCoefficient(opt.Epsilon, sensitivity)
	if err != nil {
		return nil, fmt.Errorf("Exponential: %w", err)
	}
	log.V(2).Infof("exponential mechanism over %d candidates with coefficient %s", n, coefficient)

	scores := secure.ParN(b, n, opt.Score.Score)
	// Scores are only known once declared.
	if err := secure.CheckPrecision(b, scores...); err != nil {
		return nil, fmt.Errorf("Exponential: %w", err)
	}
	weights := secure.ParMap(b, scores, func(b secure.Builder, _ int, score secure.Real) secure.Real {
		return b.Real().Exp(b.Real().MultKnown(coefficient, score))
	})
	return sampling.Categorical(b, weights, false)
}

// LaplaceOptions contains the options of the Laplace mechanism.
type LaplaceOptions struct {
	Epsilon     float64 // Privacy parameter ε. Required.
	Sensitivity float64 // L1 sensitivity of the secret value. Required.
}

// Laplace returns x plus Laplace noise with scale sensitivity/ε.
func Laplace(b secure.Builder, x secure.Real, opt *LaplaceOptions) (secure.Real, error) {
	if opt == nil {
		opt = &LaplaceOptions{}
	}
	scale, err := noise.LaplaceScale(opt.Epsilon, opt.Sensitivity)
	if err != nil {
		return nil, fmt.Errorf("Laplace: %w", err)
	}
	y, err := AddLaplaceNoise(b, x, scale)
	if err != nil {
		return nil, fmt.Errorf("Laplace: %w", err)
	}
	return y, nil
}

// AddLaplaceNoise returns x plus Laplace noise with the given public scale.
// The noise is sampled first and added in a sequential step.
func AddLaplaceNoise(b secure.Builder, x secure.Real, scale *apd.Decimal) (secure.Real, error) {
	if err := secure.CheckPrecision(b, x); err != nil {
		return nil, err
	}
	log.V(2).Infof("laplace mechanism with scale %s", scale)
	y, err := sampling.Laplace(b, scale)
	if err != nil {
		return nil, err
	}
	return secure.Seq(b, func(b secure.Builder) secure.Real { return b.Real().Add(x, y) }), nil
}
