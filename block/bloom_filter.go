package block

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// BloomFilter is a bloom-filter side block attached to a secondary index,
// letting a lookup skip the index's sort tree entirely when a key is
// provably absent. bloom_filter_flags.algorithm on the owning
// SecondaryIndexHeader records which hashing scheme produced the bits;
// BloomAlgorithmXXHash64 is the only one this package implements.
const BloomAlgorithmXXHash64 = 1

// BloomFilter wraps a BloomFilterDescription block with Add/MayContain
// operations driven by xxhash double hashing (Kirsch-Mitzenmacher), the
// standard way to derive k hash functions from two independent ones
// without k separate hash computations per lookup.
type BloomFilter struct{ *Block }

// NewBloomFilter constructs a BloomFilter block view over offset.
func NewBloomFilter(f Pager, offset dbtype.Reference) (BloomFilter, error) {
	b, err := New(BloomFilterDescription, f, offset)
	return BloomFilter{b}, err
}

// HashCount returns the number of hash functions (k) the filter was
// built with.
func (bf BloomFilter) HashCount() (uint8, error) {
	rec, err := bf.Record()
	if err != nil {
		return 0, err
	}
	v, err := rec.GetUInteger("hash_count")
	return uint8(v), err
}

// SetHashCount sets the number of hash functions (k) and resets the bit
// array to hold numBits bits (rounded up to a whole byte).
func (bf BloomFilter) SetHashCount(k uint8, numBits uint64) error {
	rec, err := bf.Record()
	if err != nil {
		return err
	}
	if err := rec.SetUInteger("hash_count", uint64(k)); err != nil {
		return err
	}
	return rec.SetBuffer("bits", make([]byte, (numBits+7)/8))
}

func (bf BloomFilter) bitPositions(key []byte) ([]uint64, error) {
	rec, err := bf.Record()
	if err != nil {
		return nil, err
	}
	k, err := bf.HashCount()
	if err != nil {
		return nil, err
	}
	bits, err := rec.GetBuffer("bits")
	if err != nil {
		return nil, err
	}
	numBits := uint64(len(bits)) * 8
	if numBits == 0 {
		return nil, errtype.Validation("bloom filter has not been sized (call SetHashCount first)")
	}
	h1 := xxhash.Sum64(key)
	var seeded [8]byte
	binary.LittleEndian.PutUint64(seeded[:], h1)
	h2 := xxhash.Sum64(append(seeded[:], key...))
	positions := make([]uint64, k)
	for i := uint8(0); i < k; i++ {
		positions[i] = (h1 + uint64(i)*h2) % numBits
	}
	return positions, nil
}

// Add marks key as present in the filter.
func (bf BloomFilter) Add(key []byte) error {
	positions, err := bf.bitPositions(key)
	if err != nil {
		return err
	}
	rec, err := bf.Record()
	if err != nil {
		return err
	}
	bits, err := rec.GetBuffer("bits")
	if err != nil {
		return err
	}
	for _, pos := range positions {
		bits[pos/8] |= 1 << (pos % 8)
	}
	return rec.SetBuffer("bits", bits)
}

// MayContain reports whether key could be present. false is a definite
// answer (the key is absent); true only means the key has not been ruled
// out.
func (bf BloomFilter) MayContain(key []byte) (bool, error) {
	positions, err := bf.bitPositions(key)
	if err != nil {
		return false, err
	}
	rec, err := bf.Record()
	if err != nil {
		return false, err
	}
	bits, err := rec.GetBuffer("bits")
	if err != nil {
		return false, err
	}
	for _, pos := range positions {
		if bits[pos/8]&(1<<(pos%8)) == 0 {
			return false, nil
		}
	}
	return true, nil
}
