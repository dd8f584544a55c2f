package domain

import "sort"

// CodeSet is a set of capability codes.
type CodeSet map[string]struct{}

// NewCodeSet returns a set holding codes.
func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	s.Add(codes...)
	return s
}

// Add inserts codes; empty strings are ignored.
func (s CodeSet) Add(codes ...string) {
	for _, c := range codes {
		if c != "" {
			s[c] = struct{}{}
		}
	}
}

// Has reports whether code is in the set.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the codes in lexical order.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
