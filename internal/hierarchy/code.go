// Package hierarchy derives the four-level account tree from account codes.
// Nothing here is persisted: nodes are recomputed from the records of each pass.
package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/acctree/internal/model"
)

// ErrMalformed is wrapped by Parse for codes outside the 4-4-3-3 pattern.
var ErrMalformed = errors.New("malformed account code")

// segmentWidths is the fixed digit width of each code segment.
var segmentWidths = [4]int{4, 4, 3, 3}

// FamilyCodeLen is the length of segments 1-2 including the dash ("5000-2001").
const FamilyCodeLen = 9

// Segments are the four digit groups of a well-formed code.
type Segments [4]string

// Parse validates a code and splits it into its segments.
func Parse(code model.AccountCode) (Segments, error) {
	var segs Segments
	parts := strings.Split(string(code), "-")
	if len(parts) != len(segs) {
		return segs, fmt.Errorf("%w %q: expected 4 segments, got %d", ErrMalformed, code, len(parts))
	}
	for i, p := range parts {
		if len(p) != segmentWidths[i] {
			return segs, fmt.Errorf("%w %q: segment %d must have %d digits", ErrMalformed, code, i+1, segmentWidths[i])
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return segs, fmt.Errorf("%w %q: segment %d is not numeric", ErrMalformed, code, i+1)
			}
		}
		segs[i] = p
	}
	return segs, nil
}

// Code joins the segments back into an account code.
func (s Segments) Code() model.AccountCode {
	return model.AccountCode(strings.Join(s[:], "-"))
}

// zeroed returns a copy with segment i (0-based) replaced by zeros.
func (s Segments) zeroed(i int) Segments {
	s[i] = strings.Repeat("0", segmentWidths[i])
	return s
}

func isZero(seg string) bool {
	return strings.Trim(seg, "0") == ""
}
