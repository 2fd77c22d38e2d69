package browse

import "sync"

// View guards a consumer against results that arrive too late. Fetches are
// never cancelled; instead each load takes a generation token and results
// carrying an old token, or arriving after Dispose, are silently dropped.
type View struct {
	mu       sync.Mutex
	gen      uint64
	disposed bool
}

// Begin starts a new load and invalidates results from earlier ones.
func (v *View) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	return v.gen
}

// Apply runs fn if gen is still current and the view is alive. fn runs under
// the view's lock, so it never overlaps Dispose.
func (v *View) Apply(gen uint64, fn func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || gen != v.gen {
		return false
	}
	fn()
	return true
}

// Dispose marks the view gone. Later Apply calls do nothing.
func (v *View) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disposed = true
}

// Disposed reports whether Dispose was called.
func (v *View) Disposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}
