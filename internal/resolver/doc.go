// Package resolver interpolates variable references inside front matter and
// expands array-valued references into concrete candidates.
//
// Two reference forms are supported:
//
//	%name            front matter field (overrides included)
//	%{site.params.x} dotted path into the complex scope
//
// Only expandable fields (by default "permalink") may reference arrays. Such a
// reference produces one ExpandedValue per element; several array references
// produce their Cartesian product with the rightmost reference varying fastest.
//
// Resolution never mutates its input. Each call works on a deep copy so the
// same raw front matter can be resolved repeatedly with different overrides.
package resolver
