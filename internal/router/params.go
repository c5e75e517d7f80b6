package router

import (
	"net/url"
	"strings"
)

type param struct {
	key   string
	value string
}

// Params is an ordered set of query parameters. Keys keep the position of
// their first appearance; setting an existing key replaces its value in place.
type Params struct {
	pairs []param
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{}
}

// ParseParams parses a raw query string (with or without a leading "?").
// A key or value that fails to unescape is kept as literal text. A repeated
// key keeps its first position and takes the last value, the way
// URLSearchParams entries are folded into a plain object.
func ParseParams(raw string) *Params {
	p := NewParams()
	eachPair(raw, p.Set)
	return p
}

// FirstValue returns the first value of key in a raw query string, the way
// URLSearchParams.get reads it.
func FirstValue(raw, key string) (string, bool) {
	var (
		value string
		found bool
	)
	eachPair(raw, func(k, v string) {
		if !found && k == key {
			value, found = v, true
		}
	})
	return value, found
}

func eachPair(raw string, fn func(key, value string)) {
	raw = strings.TrimPrefix(raw, "?")
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key := unescape(k)
		if key == "" {
			continue
		}
		fn(key, unescape(v))
	}
}

// unescape decodes s. Malformed percent sequences are kept as literal text
// while the valid ones around them are still decoded.
func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b = append(b, ' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// Get returns the value for key, or "" if absent.
func (p *Params) Get(key string) string {
	if i := p.index(key); i >= 0 {
		return p.pairs[i].value
	}
	return ""
}

// Has reports whether key is present, even with an empty value.
func (p *Params) Has(key string) bool {
	return p.index(key) >= 0
}

// Set assigns value to key, appending the key if it is new.
func (p *Params) Set(key, value string) {
	if i := p.index(key); i >= 0 {
		p.pairs[i].value = value
		return
	}
	p.pairs = append(p.pairs, param{key: key, value: value})
}

// Del removes key.
func (p *Params) Del(key string) {
	if i := p.index(key); i >= 0 {
		p.pairs = append(p.pairs[:i], p.pairs[i+1:]...)
	}
}

// Keys returns the keys in order.
func (p *Params) Keys() []string {
	keys := make([]string, len(p.pairs))
	for i, kv := range p.pairs {
		keys[i] = kv.key
	}
	return keys
}

// Len returns the number of keys.
func (p *Params) Len() int {
	return len(p.pairs)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := &Params{pairs: make([]param, len(p.pairs))}
	copy(c.pairs, p.pairs)
	return c
}

// Merge sets every key of other onto p, in other's order.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}
	for _, kv := range other.pairs {
		p.Set(kv.key, kv.value)
	}
}

// With returns a copy of p with key set to value.
func (p *Params) With(key, value string) *Params {
	c := p.Clone()
	c.Set(key, value)
	return c
}

// Without returns a copy of p with key removed.
func (p *Params) Without(key string) *Params {
	c := p.Clone()
	c.Del(key)
	return c
}

// Encode renders the parameters as a form-encoded query string in key order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}

// URL returns the root-relative URL "/?<encoded params>".
func (p *Params) URL() string {
	return "/?" + p.Encode()
}

func (p *Params) index(key string) int {
	for i, kv := range p.pairs {
		if kv.key == key {
			return i
		}
	}
	return -1
}
