package axtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Reference token grammar, uniquely decodable:
//
//	top-level frame element:  s<generation>e<elementOrdinal>     e.g. "s3e12"
//	nested frame element:     f<frameOrdinal>s<generation>e<elementOrdinal>
//
// All numbers are base-10 without leading zeros. Frame ordinal 0 (the
// top-level frame) is always written in the prefix-free form.

// ref is a decoded reference token.
type ref struct {
	frame int // 0 = top-level frame
	gen   uint64
	elem  int
}

func (r ref) String() string {
	if r.frame == 0 {
		return fmt.Sprintf("s%de%d", r.gen, r.elem)
	}
	return fmt.Sprintf("f%ds%de%d", r.frame, r.gen, r.elem)
}

// parseRef decodes a token. All failures wrap ErrMalformedToken.
func parseRef(token string) (ref, error) {
	s := token
	var r ref

	if strings.HasPrefix(s, "f") {
		rest, n, err := takeNumber(s[1:])
		if err != nil || n == 0 {
			return ref{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
		}
		r.frame = int(n)
		s = rest
	}

	if !strings.HasPrefix(s, "s") {
		return ref{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	rest, gen, err := takeNumber(s[1:])
	if err != nil {
		return ref{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	r.gen = gen
	s = rest

	if !strings.HasPrefix(s, "e") {
		return ref{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	rest, elem, err := takeNumber(s[1:])
	if err != nil || rest != "" {
		return ref{}, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	r.elem = int(elem)

	return r, nil
}

// takeNumber consumes a leading run of digits and returns the remainder.
func takeNumber(s string) (rest string, n uint64, err error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", 0, fmt.Errorf("no digits")
	}
	n, err = strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return s[i:], n, nil
}
