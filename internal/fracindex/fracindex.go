// Package fracindex generates string sort keys that can always be extended
// with a new key between any two existing ones.
//
// Keys are drawn from a 62-character alphabet (digits, uppercase, lowercase)
// that sorts the same under byte comparison. A generated key never ends in
// the minimum character '0', which keeps a gap open below every key.
package fracindex

import (
	"strings"

	"github.com/roach88/loam/internal/ir"
)

// Alphabet is the ordered key alphabet.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	base    = len(Alphabet)
	minChar = '0'
	maxChar = 'z'
	midIdx  = base / 2
)

// StartKey is returned when neither bound is given. It is Alphabet[midIdx].
const StartKey = "V"

func digit(c byte) int {
	return strings.IndexByte(Alphabet, c)
}

func validate(key string) error {
	if key == "" {
		return ir.NewOrderViolation("empty key")
	}
	for i := 0; i < len(key); i++ {
		if digit(key[i]) < 0 {
			return ir.NewOrderViolation("key %q: invalid character %q", key, key[i])
		}
	}
	return nil
}

// KeyBetween returns a key strictly between a and b. A nil a means before
// everything and a nil b means after everything.
//
// Fails with ir.ErrCodeOrderViolation when a >= b, when either key contains
// characters outside Alphabet, or when no key exists between the bounds
// (b consists only of '0' characters beyond a).
func KeyBetween(a, b *string) (string, error) {
	if a != nil {
		if err := validate(*a); err != nil {
			return "", err
		}
	}
	if b != nil {
		if err := validate(*b); err != nil {
			return "", err
		}
	}

	switch {
	case a == nil && b == nil:
		return StartKey, nil
	case a == nil:
		return keyBefore(*b)
	case b == nil:
		return keyAfter(*a), nil
	}

	if *a >= *b {
		return "", ir.NewOrderViolation("key %q is not less than %q", *a, *b)
	}
	return midpoint(*a, *b)
}

// keyBefore returns a key below b.
func keyBefore(b string) (string, error) {
	// Leading minimum characters are copied; the first larger character is
	// halved. A b made only of '0' has nothing below it.
	i := 0
	for i < len(b) && b[i] == minChar {
		i++
	}
	if i == len(b) {
		return "", ir.NewOrderViolation("no key exists before %q", b)
	}
	d := digit(b[i])
	if d == 1 {
		// Only '0' sits between, and keys may not end in it.
		return b[:i] + string(minChar) + string(Alphabet[midIdx]), nil
	}
	return b[:i] + string(Alphabet[d/2]), nil
}

// keyAfter returns a key above a.
func keyAfter(a string) string {
	if a[0] != maxChar {
		return string(Alphabet[digit(a[0])+1])
	}
	return a + string(Alphabet[midIdx])
}

// midpoint returns a key strictly between a and b, given a < b.
func midpoint(a, b string) (string, error) {
	i := 0
	for i < len(a) && a[i] == b[i] {
		i++
	}

	if i == len(a) {
		// a is a strict prefix of b.
		rest, err := keyBefore(b[i:])
		if err != nil {
			return "", ir.NewOrderViolation("no key exists between %q and %q", a, b)
		}
		return a + rest, nil
	}

	da, db := digit(a[i]), digit(b[i])
	if db-da >= 2 {
		return a[:i] + string(Alphabet[(da+db)/2]), nil
	}
	// Adjacent characters: keep a's character and go above the rest of a.
	if i+1 == len(a) {
		return a + string(Alphabet[midIdx]), nil
	}
	return a[:i+1] + keyAfter(a[i+1:]), nil
}

// NKeysBetween returns n ascending keys strictly between a and b.
func NKeysBetween(a, b *string, n int) ([]string, error) {
	keys := make([]string, 0, max(n, 0))
	if n <= 0 {
		return keys, nil
	}
	if n == 1 {
		k, err := KeyBetween(a, b)
		if err != nil {
			return nil, err
		}
		return append(keys, k), nil
	}

	if b == nil {
		prev := a
		for i := 0; i < n; i++ {
			k, err := KeyBetween(prev, nil)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			prev = &keys[len(keys)-1]
		}
		return keys, nil
	}

	// Split around a midpoint so keys stay short.
	mid, err := KeyBetween(a, b)
	if err != nil {
		return nil, err
	}
	left, err := NKeysBetween(a, &mid, n/2)
	if err != nil {
		return nil, err
	}
	right, err := NKeysBetween(&mid, b, n-n/2-1)
	if err != nil {
		return nil, err
	}
	keys = append(keys, left...)
	keys = append(keys, mid)
	return append(keys, right...), nil
}
