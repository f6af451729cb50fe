package validate

import "github.com/roach88/aiir/internal/container"

// Conformance defaults.
const (
	DefaultSeed       uint32 = 0x12345678
	DefaultIterations        = 500
)

// XorShift32 is Marsaglia's 32-bit xorshift generator (13, 17, 5). It is
// deterministic for a given seed; a zero state would stay zero, so New
// substitutes DefaultSeed.
type XorShift32 struct {
	state uint32
}

// NewXorShift32 returns a generator seeded with seed.
func NewXorShift32(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &XorShift32{state: seed}
}

// Next advances the generator and returns the new state.
func (x *XorShift32) Next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// Options configures a conformance run. Zero fields take the defaults.
type Options struct {
	Iterations int
	Seed       uint32
}

// Report summarizes a conformance run.
type Report struct {
	Iterations    int  `json:"iterations"`
	Rejected      int  `json:"rejected"`
	BaselineValid bool `json:"baselineValid"`
}

// RejectRate is Rejected/Iterations, or 0 for an empty run.
func (r Report) RejectRate() float64 {
	if r.Iterations == 0 {
		return 0
	}
	return float64(r.Rejected) / float64(r.Iterations)
}

// Conformance validates words as-is, then validates Iterations mutants,
// each a copy of words with one bit flipped. Per iteration the first draw
// picks the word (r % len) and the second picks the bit (r % 32).
func Conformance(words []uint32, p container.Profile, opts Options) Report {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	rep := Report{BaselineValid: Packet(words, p, len(words)) == nil}
	if len(words) == 0 {
		return rep
	}

	rng := NewXorShift32(opts.Seed)
	m := make([]uint32, len(words))
	for i := 0; i < opts.Iterations; i++ {
		copy(m, words)
		idx := rng.Next() % uint32(len(words))
		bit := rng.Next() % 32
		m[idx] ^= 1 << bit
		if Packet(m, p, len(m)) != nil {
			rep.Rejected++
		}
		rep.Iterations++
	}
	return rep
}
