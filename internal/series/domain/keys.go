package series

// KeySet is a set of series keys.
type KeySet[K comparable] map[K]struct{}

// NewKeySet builds a set from keys.
func NewKeySet[K comparable](keys ...K) KeySet[K] {
	set := make(KeySet[K], len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// Add inserts key.
func (s KeySet[K]) Add(key K) { s[key] = struct{}{} }

// Has reports whether key is present.
func (s KeySet[K]) Has(key K) bool {
	_, ok := s[key]
	return ok
}

// Len returns the number of keys.
func (s KeySet[K]) Len() int { return len(s) }

// Difference returns the keys of s missing from other.
func (s KeySet[K]) Difference(other KeySet[K]) KeySet[K] {
	out := make(KeySet[K])
	for key := range s {
		if !other.Has(key) {
			out.Add(key)
		}
	}
	return out
}

// SubsetOf reports whether every key of s is in other.
func (s KeySet[K]) SubsetOf(other KeySet[K]) bool {
	for key := range s {
		if !other.Has(key) {
			return false
		}
	}
	return true
}

// Clone copies the set.
func (s KeySet[K]) Clone() KeySet[K] {
	out := make(KeySet[K], len(s))
	for key := range s {
		out[key] = struct{}{}
	}
	return out
}

// PeriodKey identifies a settlement period on a settlement date.
type PeriodKey struct {
	Date   string
	Period int
}
