package identity

import "github.com/leapstack-labs/conceptc/pkg/concept"

// Keyer memoizes concept keys per instance. A Keyer belongs to a single
// build; it is not safe for concurrent use.
type Keyer struct {
	keys map[*concept.Instance]string
}

// NewKeyer creates an empty key cache.
func NewKeyer() *Keyer {
	return &Keyer{keys: make(map[*concept.Instance]string)}
}

// Key returns the cached key of inst, computing it on first use. Failed
// computations are not cached.
func (k *Keyer) Key(inst *concept.Instance) (string, error) {
	if key, ok := k.keys[inst]; ok {
		return key, nil
	}
	key, err := Key(inst)
	if err != nil {
		return "", err
	}
	k.keys[inst] = key
	return key, nil
}

// MustKey returns the key of an instance already known to be keyed.
func (k *Keyer) MustKey(inst *concept.Instance) string {
	key, err := k.Key(inst)
	if err != nil {
		panic(err)
	}
	return key
}

// Forget drops the cached key of inst.
func (k *Keyer) Forget(inst *concept.Instance) {
	delete(k.keys, inst)
}

// Len returns the number of cached keys.
func (k *Keyer) Len() int {
	return len(k.keys)
}
