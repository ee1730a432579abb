package model

// Condition is an equality match on a payload key
type Condition struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Filter is a conjunction of equality conditions and negated equality conditions,
// the only predicate shape every index backend supports.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// IsEmpty reports whether the filter matches everything
func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.MustNot) == 0
}

// Has reports whether the filter carries a positive condition on key
func (f Filter) Has(key string) bool {
	for _, c := range f.Must {
		if c.Key == key {
			return true
		}
	}
	return false
}
