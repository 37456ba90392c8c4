// Package cache memoizes expensive computations, such as benchmark
// ceilings, behind pluggable persistent stores.
package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies one memoized result: the function that produced it and
// the parameters it was called with.
type Key struct {
	Function string
	Params   map[string]string
}

// NewKey builds a key from alternating name, value pairs.
func NewKey(function string, kv ...string) Key {
	k := Key{Function: function}
	if len(kv) > 0 {
		k.Params = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k.Params[kv[i]] = kv[i+1]
		}
	}
	return k
}

// String renders the canonical storage key, "function/a=1,b=2" with
// parameters sorted by name. Names and values are query-escaped.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Function
	}
	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(k.Function)
	b.WriteByte('/')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(k.Params[name]))
	}
	return b.String()
}

// FunctionOf returns the function part of a canonical storage key.
func FunctionOf(storageKey string) string {
	if i := strings.IndexByte(storageKey, '/'); i >= 0 {
		return storageKey[:i]
	}
	return storageKey
}
