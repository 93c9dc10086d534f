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

package secure_test

import (
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/differential-privacy/securedp/checks"
	"github.com/google/differential-privacy/securedp/secure"
	"github.com/google/differential-privacy/securedp/secure/dummy"
	"github.com/google/go-cmp/cmp"
)

func decimal(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	if err != nil {
		t.Fatalf("apd.NewFromString(%q): %v", s, err)
	}
	return d
}

func TestContextValidate(t *testing.T) {
	for _, tc := range []struct {
		precision int
		wantErr   bool
	}{
		{1, false},
		{24, false},
		{secure.MaxPrecision, false},
		{0, true},
		{-1, true},
		{secure.MaxPrecision + 1, true},
	} {
		err := secure.Context{Precision: tc.precision}.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("Context{Precision: %d}.Validate(): got err %v, wantErr %t", tc.precision, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, checks.ErrInvalidParameter) {
			t.Errorf("Context{Precision: %d}.Validate(): got err %v, want ErrInvalidParameter", tc.precision, err)
		}
	}
}

func TestQuantize(t *testing.T) {
	for _, tc := range []struct {
		precision int
		in, want  string
	}{
		{2, "0.3", "0.25"},
		{2, "0.375", "0.5"}, // ties round to even: 1.5 -> 2
		{2, "0.125", "0"},   // 0.5 -> 0
		{4, "-1.03", "-1"},
		{16, "0.25", "0.25"},
		{1, "7", "7"},
		{24, "0.1", "0.100000023841857910156250"},
	} {
		got, err := secure.Context{Precision: tc.precision}.Quantize(decimal(t, tc.in))
		if err != nil {
			t.Fatalf("Quantize(%s) with precision %d: got err %v", tc.in, tc.precision, err)
		}
		if got.Cmp(decimal(t, tc.want)) != 0 {
			t.Errorf("Quantize(%s) with precision %d = %s, want %s", tc.in, tc.precision, got, tc.want)
		}
	}
}

func TestFixedPoint(t *testing.T) {
	ctx := secure.Context{Precision: 8}
	for _, tc := range []struct {
		in   string
		want int64
	}{
		{"1", 256},
		{"-0.5", -128},
		{"0.001", 0},
		{"1.00390625", 257},
	} {
		got, err := ctx.FixedPoint(decimal(t, tc.in))
		if err != nil {
			t.Fatalf("FixedPoint(%s): got err %v", tc.in, err)
		}
		if !got.IsInt64() || got.Int64() != tc.want {
			t.Errorf("FixedPoint(%s)=%v, want %d", tc.in, got, tc.want)
		}
	}
}

type foreignReal struct{ precision int }

func (r foreignReal) Precision() int { return r.precision }

func TestCheckPrecision(t *testing.T) {
	e, err := dummy.New(&dummy.Options{Precision: 16, Seed: []byte("precision")})
	if err != nil {
		t.Fatalf("dummy.New: %v", err)
	}
	b := e.Builder()
	x := b.Real().Known(decimal(t, "1"))
	if err := secure.CheckPrecision(b, x, foreignReal{16}); err != nil {
		t.Errorf("CheckPrecision with matching precisions: got err %v", err)
	}
	if err := secure.CheckPrecision(b, x, foreignReal{20}); !errors.Is(err, checks.ErrPrecisionMismatch) {
		t.Errorf("CheckPrecision with mismatching precisions: got err %v, want ErrPrecisionMismatch", err)
	}
	if err := secure.CheckPrecision(b); err != nil {
		t.Errorf("CheckPrecision without values: got err %v", err)
	}
}

func TestParMapKeepsOrder(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		e, err := dummy.New(&dummy.Options{Seed: []byte("parmap"), Concurrent: concurrent})
		if err != nil {
			t.Fatalf("dummy.New: %v", err)
		}
		b := e.Builder()
		in := []int64{5, -3, 8, 0, 13}
		outs := secure.ParMap(b, in, func(b secure.Builder, i int, x int64) secure.Int {
			return b.Numeric().MultKnown(int64(i), b.Numeric().Known(x))
		})
		var got []int64
		for _, o := range outs {
			v, err := e.OpenInt(o)
			if err != nil {
				t.Fatalf("OpenInt: %v", err)
			}
			got = append(got, v)
		}
		if diff := cmp.Diff([]int64{0, -3, 16, 0, 52}, got); diff != "" {
			t.Errorf("ParMap with concurrent=%t: unexpected outputs (-want +got):\n%s", concurrent, diff)
		}
	}
}

func TestPar2AndSeqTrace(t *testing.T) {
	e, err := dummy.New(&dummy.Options{Seed: []byte("par2")})
	if err != nil {
		t.Fatalf("dummy.New: %v", err)
	}
	b := e.Builder()
	x, y := secure.Par2(b,
		func(b secure.Builder) secure.Int { return b.Numeric().Known(2) },
		func(b secure.Builder) secure.Int { return b.Numeric().Known(3) },
	)
	z := secure.Seq(b, func(b secure.Builder) secure.Int { return b.Numeric().Mult(x, y) })
	if v, err := e.OpenInt(z); err != nil || v != 6 {
		t.Errorf("Seq(Mult(Par2(2, 3)))=%d, err %v, want 6", v, err)
	}
	want := []dummy.Event{
		{Kind: dummy.ParEvent, Width: 2, Depth: 0},
		{Kind: dummy.OpEvent, Name: "Int.Known", Depth: 1},
		{Kind: dummy.OpEvent, Name: "Int.Known", Depth: 1},
		{Kind: dummy.SeqEvent, Depth: 0},
		{Kind: dummy.OpEvent, Name: "Int.Mult", Depth: 1},
	}
	if diff := cmp.Diff(want, e.Trace()); diff != "" {
		t.Errorf("unexpected trace (-want +got):\n%s", diff)
	}
}
