package echo

import (
	"github.com/pkg/errors"
)

// RefdesLen is the length of a reference designator such as
// CE02SHBP-MJ01C-07-ZPLSCB101.
const RefdesLen = 27

// EchoRefdesList holds the echosounders currently deployed on the array.
var EchoRefdesList = []string{
	"CE02SHBP-MJ01C-07-ZPLSCB101",
	"CE04OSPS-PC01B-05-ZPLSCB102",
}

// Refdes is a reference designator. It encodes site, node, and sensor at
// fixed offsets: SSSSSSSS-NNNNN-PP-IIIIIIIII.
type Refdes struct {
	s string
}

// ParseRefdes validates s and returns it as a Refdes.
func ParseRefdes(s string) (Refdes, error) {
	if len(s) != RefdesLen {
		return Refdes{}, errors.Errorf("reference designator '%s' has length %d, expected %d", s, len(s), RefdesLen)
	}
	for _, i := range []int{8, 14, 17} {
		if s[i] != '-' {
			return Refdes{}, errors.Errorf("reference designator '%s' has no dash at offset %d", s, i)
		}
	}
	return Refdes{s: s}, nil
}

// MustParseRefdes is like ParseRefdes but panics on error.
func MustParseRefdes(s string) Refdes {
	r, err := ParseRefdes(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Refdes) String() string { return r.s }

// Site is the 8 character site code, e.g. CE02SHBP.
func (r Refdes) Site() string { return r.s[0:8] }

// Node is the 5 character node code, e.g. MJ01C.
func (r Refdes) Node() string { return r.s[9:14] }

// Sensor is the 9 character instrument code, e.g. ZPLSCB101.
func (r Refdes) Sensor() string { return r.s[18:27] }

// Equal reports whether r and o are the same instrument.
func (r Refdes) Equal(o Refdes) bool { return r.s == o.s }

// IsZero reports whether r was never parsed.
func (r Refdes) IsZero() bool { return r.s == "" }
