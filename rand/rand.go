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

// Package rand provides the randomness streams consumed by evaluation engines:
// share masks, secret random bits and secret uniform reals.
//
// The secure mechanisms never draw randomness themselves. All entropy is
// requested from the engine, which reads it from the streams in this package.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"io"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	log "github.com/golang/glog"
	"github.com/zeebo/blake3"
)

// seedDomain separates streams derived from a seed from other uses of the seed.
const seedDomain = "securedp rand stream v1"

// NewReader returns a stream of uniformly random bytes.
//
// With a nil seed, the stream is read from crypto/rand. Otherwise it is the
// blake3 extendable output of the seed and label, so equal (seed, label) pairs
// produce equal streams. Seeded streams make evaluations reproducible in tests
// and must not be used in production.
func NewReader(seed []byte, label string) io.Reader {
	if seed == nil {
		return bufio.NewReaderSize(cryptorand.Reader, 65536)
	}
	h := blake3.New()
	_, _ = h.WriteString(seedDomain)
	_, _ = h.Write([]byte{byte(len(label))})
	_, _ = h.WriteString(label)
	_, _ = h.Write(seed)
	return h.Digest()
}

// LockedReader wraps an io.Reader to be safe for concurrent reads.
type LockedReader struct {
	reader io.Reader
	m      sync.Mutex
}

// NewLockedReader creates a LockedReader by wrapping an underlying reader.
func NewLockedReader(r io.Reader) *LockedReader {
	return &LockedReader{reader: r}
}

// Read implements io.Reader. Concurrent callers never observe the same bytes.
func (r *LockedReader) Read(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reader.Read(p)
}

func mustRead(r io.Reader, b []byte) {
	if _, err := io.ReadFull(r, b); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
}

// BitReader hands out the bits of a byte stream one at a time, least
// significant bit first.
//
// Not thread-safe.
type BitReader struct {
	r   io.Reader
	buf uint8
	pos uint8
}

// NewBitReader returns a BitReader reading from r.
func NewBitReader(r io.Reader) *BitReader {
	return &BitReader{r: r, pos: 8}
}

// Bit returns 0 or 1 with equal probability.
func (b *BitReader) Bit() uint8 {
	if b.pos > 7 { // Out of random bits.
		var r [1]uint8
		mustRead(b.r, r[:])
		b.buf = r[0]
		b.pos = 0
	}
	res := (b.buf >> b.pos) & 1
	b.pos++
	return res
}

// Bits returns an integer drawn uniformly from [0, 2ⁿ). The bytes are read
// big-endian and the excess high bits of the first byte are discarded.
func Bits(r io.Reader, n int) *big.Int {
	if n <= 0 {
		return new(big.Int)
	}
	buf := make([]byte, (n+7)/8)
	mustRead(r, buf)
	if excess := len(buf)*8 - n; excess > 0 {
		buf[0] &= 0xff >> excess
	}
	return new(big.Int).SetBytes(buf)
}

// ModN samples an element of ℤₘ by rejection sampling.
func ModN(r io.Reader, m *saferith.Modulus) *saferith.Nat {
	out := new(saferith.Nat)
	buf := make([]byte, (m.BitLen()+7)/8)
	excess := len(buf)*8 - m.BitLen()
	for {
		mustRead(r, buf)
		buf[0] &= 0xff >> excess
		out.SetBytes(buf)
		if _, _, lt := out.CmpMod(m); lt == 1 {
			return out
		}
	}
}
