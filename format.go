package compute

import (
	"fmt"
	"strings"
)

// Format is the element type of a legacy pipeline buffer.
type Format int

// Element formats. The numeric values match the legacy host API.
const (
	FormatUnknown Format = -1
	FormatI8      Format = 0
	FormatU8      Format = 1
	FormatI16     Format = 2
	FormatU16     Format = 3
	FormatI32     Format = 4
	FormatU32     Format = 5
	FormatI64     Format = 6
	FormatU64     Format = 7
	FormatF16     Format = 8
	FormatF32     Format = 9
	FormatF64     Format = 10
)

var formatStrides = [...]int{
	FormatI8:  1,
	FormatU8:  1,
	FormatI16: 2,
	FormatU16: 2,
	FormatI32: 4,
	FormatU32: 4,
	FormatI64: 8,
	FormatU64: 8,
	FormatF16: 2,
	FormatF32: 4,
	FormatF64: 8,
}

var formatNames = [...]string{
	FormatI8:  "i8",
	FormatU8:  "u8",
	FormatI16: "i16",
	FormatU16: "u16",
	FormatI32: "i32",
	FormatU32: "u32",
	FormatI64: "i64",
	FormatU64: "u64",
	FormatF16: "f16",
	FormatF32: "f32",
	FormatF64: "f64",
}

// Stride returns the size of one element in bytes, or 0 if f is not a
// known format.
func (f Format) Stride() int {
	if f < 0 || int(f) >= len(formatStrides) {
		return 0
	}
	return formatStrides[f]
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.Stride() != 0
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// ParseFormat parses a format name such as "f32" or "u8".
// Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: unknown format %q", ErrInvalidArgument, s)
}
