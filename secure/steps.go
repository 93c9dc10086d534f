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

package secure

// ParMap declares one step per element of xs in a single parallel batch and
// returns the outputs in the order of xs.
func ParMap[T, U any](b Builder, xs []T, f func(b Builder, i int, x T) U) []U {
	out := make([]U, len(xs))
	steps := make([]Step, len(xs))
	for i, x := range xs {
		i, x := i, x
		steps[i] = func(b Builder) { out[i] = f(b, i, x) }
	}
	b.Par(steps...)
	return out
}

// ParN declares n steps in a single parallel batch and returns their outputs
// in index order.
func ParN[U any](b Builder, n int, f func(b Builder, i int) U) []U {
	out := make([]U, n)
	steps := make([]Step, n)
	for i := range steps {
		i := i
		steps[i] = func(b Builder) { out[i] = f(b, i) }
	}
	b.Par(steps...)
	return out
}

// Par2 declares two independent steps in a single parallel batch.
func Par2[A, B any](b Builder, fa func(b Builder) A, fb func(b Builder) B) (A, B) {
	var a A
	var c B
	b.Par(
		func(b Builder) { a = fa(b) },
		func(b Builder) { c = fb(b) },
	)
	return a, c
}

// Seq declares a step that depends on everything declared before it and
// returns its output.
func Seq[T any](b Builder, f func(b Builder) T) T {
	var out T
	b.Seq(func(b Builder) { out = f(b) })
	return out
}
