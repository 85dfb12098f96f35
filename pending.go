package recache

// callKey identifies one logical call: a registered function plus its
// argument tuple. Argument types are constrained to comparable at
// registration time, so callKey itself is comparable and can serve as a
// map key directly.
type callKey struct {
	fn   int
	args any
}

// pendingSet tracks calls that have been requested but not yet resolved,
// in insertion order. The scheduler always drains the most recently
// inserted key, which is the deepest unresolved call, so the set behaves
// like an ordered set with LIFO selection.
//
// The set is shared across all functions registered on an engine:
// mutually recursive functions see each other's pending calls.
type pendingSet struct {
	keys  []callKey
	index map[callKey]int
}

func newPendingSet() *pendingSet {
	return &pendingSet{index: make(map[callKey]int)}
}

// Contains reports whether key is pending.
func (p *pendingSet) Contains(key callKey) bool {
	_, ok := p.index[key]
	return ok
}

// Push appends key to the set. The caller checks Contains first; pushing
// a key that is already pending is a cyclic recursion, not a set update.
func (p *pendingSet) Push(key callKey) {
	if _, ok := p.index[key]; ok {
		return
	}
	p.index[key] = len(p.keys)
	p.keys = append(p.keys, key)
}

// Last returns the most recently inserted key.
func (p *pendingSet) Last() (callKey, bool) {
	if len(p.keys) == 0 {
		return callKey{}, false
	}
	return p.keys[len(p.keys)-1], true
}

// Remove deletes key from the set, preserving the order of the rest.
// Removing an absent key is a no-op.
func (p *pendingSet) Remove(key callKey) {
	idx, ok := p.index[key]
	if !ok {
		return
	}
	copy(p.keys[idx:], p.keys[idx+1:])
	p.keys = p.keys[:len(p.keys)-1]
	delete(p.index, key)
	for i := idx; i < len(p.keys); i++ {
		p.index[p.keys[i]] = i
	}
}

// Clear empties the set. Fatal conditions clear everything so that a
// later outermost call starts from a clean slate.
func (p *pendingSet) Clear() {
	p.keys = p.keys[:0]
	for k := range p.index {
		delete(p.index, k)
	}
}

// Len returns the number of pending calls.
func (p *pendingSet) Len() int {
	return len(p.keys)
}
