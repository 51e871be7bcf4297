package ucoord

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// FactorTerm is one prime and its exponent in a canonical factorization.
type FactorTerm struct {
	Prime *big.Int
	Exp   uint32
}

// FactorSet specifies how many times each prime appears in a magnitude.
//
// Canonical form: primes strictly ascending, every exponent > 0.  An empty
// FactorSet represents the magnitude 1.
type FactorSet []FactorTerm

// Insert adds count occurrences of prime, keeping the set in canonical order.
func (factors *FactorSet) Insert(prime *big.Int, count uint32) {
	if count == 0 {
		return
	}
	insertAt := len(*factors)

	for i, Fi := range *factors {
		d := Fi.Prime.Cmp(prime)
		if d == 0 {
			(*factors)[i].Exp += count
			return
		} else if d > 0 {
			insertAt = i
			break
		}
	}

	fax := append((*factors), FactorTerm{})
	N := len(fax)
	copy(fax[insertAt+1:N], fax[insertAt:N-1])
	fax[insertAt] = FactorTerm{
		Prime: new(big.Int).Set(prime),
		Exp:   count,
	}
	*factors = fax
}

// ExpOf returns the exponent of prime, or 0 if prime is not present.
func (factors FactorSet) ExpOf(prime *big.Int) uint32 {
	for _, Fi := range factors {
		d := Fi.Prime.Cmp(prime)
		if d == 0 {
			return Fi.Exp
		} else if d > 0 {
			break
		}
	}
	return 0
}

// Remove deletes count occurrences of prime, dropping the term when its
// exponent reaches zero.  Returns false if fewer than count are present.
func (factors *FactorSet) Remove(prime *big.Int, count uint32) bool {
	for i, Fi := range *factors {
		d := Fi.Prime.Cmp(prime)
		if d == 0 {
			if Fi.Exp < count {
				return false
			}
			if Fi.Exp == count {
				*factors = append((*factors)[:i], (*factors)[i+1:]...)
			} else {
				(*factors)[i].Exp -= count
			}
			return true
		} else if d > 0 {
			break
		}
	}
	return count == 0
}

func (factors *FactorSet) Clear() {
	*factors = (*factors)[:0]
}

// Clone returns a deep copy (prime values included).
func (factors FactorSet) Clone() FactorSet {
	out := make(FactorSet, len(factors))
	for i, Fi := range factors {
		out[i] = FactorTerm{
			Prime: new(big.Int).Set(Fi.Prime),
			Exp:   Fi.Exp,
		}
	}
	return out
}

// FactorSetComparator orders two canonical FactorSets, term by term.
func FactorSetComparator(A, B FactorSet) int {
	lenB := len(B)

	for i, ai := range A {
		if lenB == i {
			return 1
		}

		bi := B[i]
		d := ai.Prime.Cmp(bi.Prime)
		if d != 0 {
			return d
		}
		dExp := int(ai.Exp) - int(bi.Exp)
		if dExp != 0 {
			return dExp
		}
	}

	if len(A) < lenB {
		return -1
	}

	return 0
}

// IsEqual is true when both sets contain identical terms.
func (factors FactorSet) IsEqual(other FactorSet) bool {
	if len(factors) != len(other) {
		return false
	}
	return FactorSetComparator(factors, other) == 0
}

// Validate checks structural canonical form: ascending unique primes > 1 and
// positive exponents.  Primality of the keys is the engine's job.
func (factors FactorSet) Validate() error {
	var prev *big.Int
	for _, Fi := range factors {
		if Fi.Prime == nil || Fi.Prime.Cmp(bigOne) <= 0 {
			return ErrBadFactorSet
		}
		if Fi.Exp == 0 {
			return ErrBadExponent
		}
		if prev != nil && prev.Cmp(Fi.Prime) >= 0 {
			return ErrBadFactorSet
		}
		prev = Fi.Prime
	}
	return nil
}

// Product reconstructs the magnitude this set represents (1 for an empty set).
func (factors FactorSet) Product() *big.Int {
	m := big.NewInt(1)
	pk := new(big.Int)
	for _, Fi := range factors {
		pk.Exp(Fi.Prime, big.NewInt(int64(Fi.Exp)), nil)
		m.Mul(m, pk)
	}
	return m
}

// TotalExp returns the sum of all exponents (Ω, counting multiplicity).
func (factors FactorSet) TotalExp() uint32 {
	n := uint32(0)
	for _, Fi := range factors {
		n += Fi.Exp
	}
	return n
}

// AppendLSM appends a canonical binary encoding of this set to out.
//
// Each term encodes as uvarint(len(primeBytes)), primeBytes (big-endian),
// uvarint(exp).  Canonical input order makes the encoding canonical, so it
// doubles as a structural equality / hash key.
func (factors FactorSet) AppendLSM(out []byte) []byte {
	var scrap [binary.MaxVarintLen64]byte

	for _, Fi := range factors {
		pb := Fi.Prime.Bytes()
		n := binary.PutUvarint(scrap[:], uint64(len(pb)))
		out = append(out, scrap[:n]...)
		out = append(out, pb...)
		n = binary.PutUvarint(scrap[:], uint64(Fi.Exp))
		out = append(out, scrap[:n]...)
	}

	return out
}

// InitFromLSM assigns this set from an encoding made by AppendLSM.
func (factors *FactorSet) InitFromLSM(in []byte) error {
	out := (*factors)[:0]
	rdr := bytes.NewReader(in)

	for rdr.Len() > 0 {
		pLen, err := binary.ReadUvarint(rdr)
		if err != nil {
			return ErrUnmarshal
		}
		if pLen == 0 || pLen > uint64(rdr.Len()) {
			return ErrUnmarshal
		}
		pb := make([]byte, pLen)
		if _, err = io.ReadFull(rdr, pb); err != nil {
			return ErrUnmarshal
		}
		exp, err := binary.ReadUvarint(rdr)
		if err != nil || exp == 0 {
			return ErrUnmarshal
		}
		out = append(out, FactorTerm{
			Prime: new(big.Int).SetBytes(pb),
			Exp:   uint32(exp),
		})
	}

	*factors = out
	return out.Validate()
}

// Hash returns a structural hash of the canonical encoding.
func (factors FactorSet) Hash() uint64 {
	var buf [192]byte
	return xxh3.Hash(factors.AppendLSM(buf[:0]))
}

// String renders the canonical expression form, e.g. "2^3*3^2*5".
func (factors FactorSet) String() string {
	if len(factors) == 0 {
		return "1"
	}
	b := strings.Builder{}
	b.Grow(32)
	for i, Fi := range factors {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(Fi.Prime.String())
		if Fi.Exp > 1 {
			b.WriteByte('^')
			b.WriteString(strconv.FormatUint(uint64(Fi.Exp), 10))
		}
	}
	return b.String()
}

var bigOne = big.NewInt(1)
