package value

import "sync"

// String is an immutable, heap-allocated byte sequence. Per spec §3.1,
// strings are interned by content identity: two Strings produced by the same
// Interner for equal byte content are the same pointer, so pointer equality
// implies value equality (Equal below still compares bytes, so a String
// minted outside an Interner — e.g. in a test — compares correctly too).
type String struct {
	bytes []byte
	hash  uint64
}

// Value returns the string's contents.
func (s *String) Value() string { return string(s.bytes) }

// Len returns the byte length of the string.
func (s *String) Len() int { return len(s.bytes) }

// Hash returns a content hash suitable for use as a table key.
func (s *String) Hash() uint64 { return s.hash }

// Equal compares two Strings by byte content.
func (s *String) Equal(o *String) bool {
	if s == o {
		return true
	}
	if s.hash != o.hash || len(s.bytes) != len(o.bytes) {
		return false
	}
	return string(s.bytes) == string(o.bytes)
}

// fnv1a64 hashes a byte slice with the FNV-1a algorithm. The result is
// stored as the String's Hash and lets Equal reject most mismatches early;
// the table engine (value/table.go) does not use it, since its hash part
// keys strings by content through a Go map.
func fnv1a64(b []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}

// Interner deduplicates strings by content so that repeated constants or
// table keys across a program share one backing String.
type Interner struct {
	mu    sync.Mutex
	table map[string]*String
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]*String)}
}

// Intern returns the canonical *String for the given content, allocating one
// if this is the first time this content has been seen.
func (in *Interner) Intern(s string) *String {
	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.table[s]; ok {
		return existing
	}
	str := &String{bytes: []byte(s), hash: fnv1a64([]byte(s))}
	in.table[s] = str
	return str
}

// NewString builds a String without interning it. Used by the bytecode
// loader for one-off constant pools where interning isn't required.
func NewString(s string) *String {
	return &String{bytes: []byte(s), hash: fnv1a64([]byte(s))}
}
