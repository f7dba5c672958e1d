// Package randseq generates a reproducible permutation of the integers
// [0, size) from a (size, seed) pair, using a quadratic-residue based
// permutation over a prime modulus so the whole range is covered
// without keeping a visited-set in memory.
package randseq

import "math/rand"

// Sequence yields randomseqNext-style values deterministically for a
// given size and seed.
type Sequence struct {
	index uint32
	seed1 uint32
	seed2 uint32
	size  uint32
	prime uint32
	src   *rand.Rand
}

// New builds a sequence over [0, size) seeded by seed. Two sequences
// built with the same (size, seed) pair always produce the same
// stream.
func New(size uint32, seed int64) *Sequence {
	s := &Sequence{
		size:  size,
		prime: primeFor(size),
		src:   rand.New(rand.NewSource(seed)),
	}
	s.reseed()
	return s
}

func primeFor(size uint32) uint32 {
	switch {
	case size <= 100:
		return 103
	case size <= 1000:
		return 1019
	case size <= 10000:
		return 10007
	case size <= 100000:
		return 100003
	default:
		return 1000003
	}
}

func (s *Sequence) reseed() {
	s.index = 0
	s.seed1 = uint32(s.src.Intn(int(s.prime)))
	s.seed2 = uint32(s.src.Intn(int(s.prime)))
}

func permuteQPR(prime, value uint32) uint32 {
	val := uint64(value) * uint64(value)
	residue := uint32(val % uint64(prime))
	if uint64(value)*2 < uint64(prime) {
		return residue
	}
	return prime - residue
}

// Next returns the next value in [0, size). When the underlying period
// (prime) is exhausted the generator reseeds from its own source and
// continues, matching the original generator's wraparound behavior.
func (s *Sequence) Next() uint32 {
	for {
		tmp := (s.index + s.seed1) % s.prime
		tmp = (tmp + s.seed2) % s.prime
		retval := permuteQPR(s.prime, permuteQPR(s.prime, tmp))
		s.index++
		if s.index == s.prime {
			s.reseed()
		}
		if retval < s.size {
			return retval
		}
	}
}
