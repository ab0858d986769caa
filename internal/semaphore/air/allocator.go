package air

// Allocator hands out constraint indices from a single monotonic counter.
// Every constraint-emitting routine draws from the same allocator, so two
// semantically distinct checks can never share an aggregation slot. Slots
// that alias would be folded together by the backend's composition
// polynomial, silently dropping one of the checks; allocation by construction
// removes that bug class.
type Allocator struct {
	next  int
	names []string
}

// NewAllocator creates an allocator starting at index zero
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next reserves and returns the next free constraint index
func (a *Allocator) Next(name string) int {
	index := a.next
	a.next++
	a.names = append(a.names, name)
	return index
}

// Issued returns the number of indices handed out so far
func (a *Allocator) Issued() int {
	return a.next
}

// Names returns the registered constraint names in index order
func (a *Allocator) Names() []string {
	result := make([]string, len(a.names))
	copy(result, a.names)
	return result
}
