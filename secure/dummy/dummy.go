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

// Package dummy provides an in-process evaluation engine for the secure
// mechanisms, meant for tests and examples.
//
// Values are additively shared modulo the prime 2^127 - 1 among a configurable
// number of simulated parties. Linear operations are computed share-wise.
// Multiplications, comparisons and transcendental functions are computed by an
// ideal functionality that reconstructs its inputs and reshares the result.
// The engine therefore has the data flow of a real protocol but none of its
// security, and must not be used to protect real data.
package dummy

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/rand"
	"github.com/google/differential-privacy/securedp/secure"
)

const (
	defaultParties   = 2
	defaultPrecision = 24
)

// ErrArithmetic reports an operation the engine could not evaluate, e.g. a
// division by a secret zero or an overflow of the field.
var ErrArithmetic = errors.New("secret arithmetic failure")

// Options configures an Engine.
type Options struct {
	// Number of simulated parties. Defaults to 2.
	Parties int
	// Number of fractional binary digits of secret reals. Defaults to 24.
	Precision int
	// Seed makes the engine deterministic. With a nil seed all randomness is
	// read from crypto/rand.
	Seed []byte
	// Randomness overrides the source of secret random bits and reals. The
	// bytes are consumed in declaration order: RandomBit uses one bit, and
	// Random(k) reads ⌈k/8⌉ bytes big-endian.
	Randomness io.Reader
	// Concurrent evaluates the steps of a parallel batch on separate
	// goroutines.
	Concurrent bool
	// MaxConcurrency limits the number of goroutines of one parallel batch
	// when Concurrent is set. Zero or less means no limit.
	MaxConcurrency int
}

// Engine evaluates secure computations on additively shared values.
type Engine struct {
	ctx            secure.Context
	parties        int
	concurrent     bool
	maxConcurrency int

	// masks provides the randomness of the shares, randomness the secret
	// random values.
	masks      io.Reader
	randomness io.Reader

	mu    sync.Mutex
	bits  *rand.BitReader
	err   error
	trace []Event
}

// New creates an Engine. A nil opts selects the defaults.
func New(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = &Options{}
	}
	parties := opts.Parties
	if parties == 0 {
		parties = defaultParties
	}
	if parties < 1 {
		return nil, fmt.Errorf("%w: Parties is %d, must be at least 1", checks.ErrInvalidParameter, parties)
	}
	precision := opts.Precision
	if precision == 0 {
		precision = defaultPrecision
	}
	ctx := secure.Context{Precision: precision}
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	randomness := opts.Randomness
	if randomness == nil {
		randomness = rand.NewReader(opts.Seed, "randomness")
	}
	randomness = rand.NewLockedReader(randomness)
	log.V(1).Infof("dummy engine: %d parties, precision %d, concurrent %t", parties, precision, opts.Concurrent)
	return &Engine{
		ctx:            ctx,
		parties:        parties,
		concurrent:     opts.Concurrent,
		maxConcurrency: opts.MaxConcurrency,
		masks:          rand.NewLockedReader(rand.NewReader(opts.Seed, "masks")),
		randomness:     randomness,
		bits:           rand.NewBitReader(randomness),
	}, nil
}

// Context returns the evaluation context of the engine.
func (e *Engine) Context() secure.Context {
	return e.ctx
}

// Parties returns the number of simulated parties.
func (e *Engine) Parties() int {
	return e.parties
}

// Builder returns a builder that declares computations at the top level of
// the engine.
func (e *Engine) Builder() secure.Builder {
	return &builder{e: e}
}

// Err returns the first arithmetic failure observed by the engine, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// OpenReal reveals a secret real. It fails if the engine observed an
// arithmetic failure while computing any value.
func (e *Engine) OpenReal(x secure.Real) (float64, error) {
	if err := e.Err(); err != nil {
		return 0, err
	}
	r := e.realOf(x)
	return toFloat(reconstruct(r.shares), r.precision), nil
}

// OpenRealExact reveals a secret real as the exact multiple of 2^-precision it
// represents.
func (e *Engine) OpenRealExact(x secure.Real) (*big.Rat, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	r := e.realOf(x)
	den := new(big.Int).Lsh(big.NewInt(1), uint(r.precision))
	return new(big.Rat).SetFrac(reconstruct(r.shares), den), nil
}

// OpenInt reveals a secret integer. It fails if the engine observed an
// arithmetic failure while computing any value.
func (e *Engine) OpenInt(x secure.Int) (int64, error) {
	if err := e.Err(); err != nil {
		return 0, err
	}
	v := reconstruct(e.intOf(x).shares)
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %v does not fit into an int64", ErrArithmetic, v)
	}
	return v.Int64(), nil
}

// Trace returns the events recorded since the engine was created or the trace
// was last reset.
func (e *Engine) Trace() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.trace...)
}

// ResetTrace discards the recorded events.
func (e *Engine) ResetTrace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace = nil
}

func (e *Engine) record(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trace = append(e.trace, ev)
}

// fail records the first failure. Later operations keep being evaluated so
// that the declared data flow does not depend on secret values.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil {
		log.Errorf("dummy engine: %v", err)
		e.err = err
	}
}

func (e *Engine) randomBit() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bits.Bit()
}
