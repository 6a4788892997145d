package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the cell variants a collector can emit.
type Kind uint8

const (
	// KindNumber is a parsed numeric reading.
	KindNumber Kind = iota
	// KindUnlimited is the controller "max" sentinel.
	KindUnlimited
	// KindInvalid is a cell that could not be parsed.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindUnlimited:
		return "unlimited"
	default:
		return "invalid"
	}
}

// Value is a single table cell.
type Value struct {
	kind Kind
	num  float64
}

// Number wraps a numeric reading.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Unlimited returns the "no limit configured" sentinel.
func Unlimited() Value { return Value{kind: KindUnlimited} }

// Invalid returns a cell that carries no usable reading.
func Invalid() Value { return Value{kind: KindInvalid} }

// ParseValue converts raw collector text into a Value. Empty cells are the
// collector's default reading and parse as zero.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Number(0)
	}
	if strings.EqualFold(s, "max") || strings.EqualFold(s, "unlimited") {
		return Unlimited()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Invalid()
	}
	return Number(f)
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric reading; ok is false for Unlimited and Invalid.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// Bytes interprets the cell as a byte limit. ok is false when the limit is
// Unlimited, Invalid or non-positive.
func (v Value) Bytes() (uint64, bool) {
	if v.kind != KindNumber || v.num <= 0 {
		return 0, false
	}
	return uint64(v.num), true
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindUnlimited:
		return "max"
	default:
		return "invalid"
	}
}
