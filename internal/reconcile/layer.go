// Package reconcile keeps a locally edited value in step with snapshots
// pushed by the store.
//
// A Layer holds the last store snapshot plus a stack of optimistic edits.
// Edits are visible immediately. When a new snapshot arrives it replaces
// the value and discards every pending edit.
package reconcile

// Token identifies one optimistic edit so it can be reverted.
type Token uint64

type edit[T any] struct {
	token Token
	fn    func(T) T
}

// Layer is not safe for concurrent use; callers hold their own lock.
type Layer[T any] struct {
	base  T
	edits []edit[T]
	next  Token
}

func New[T any](snapshot T) *Layer[T] {
	return &Layer[T]{base: snapshot}
}

// Apply records an optimistic edit on top of the current value.
func (l *Layer[T]) Apply(fn func(T) T) Token {
	l.next++
	l.edits = append(l.edits, edit[T]{token: l.next, fn: fn})
	return l.next
}

// Revert drops a pending edit. It reports false when the edit was already
// superseded by a snapshot.
func (l *Layer[T]) Revert(t Token) bool {
	for i, e := range l.edits {
		if e.token == t {
			l.edits = append(l.edits[:i], l.edits[i+1:]...)
			return true
		}
	}
	return false
}

// Replace installs a store snapshot. Pending edits are discarded.
func (l *Layer[T]) Replace(snapshot T) {
	l.base = snapshot
	l.edits = nil
}

func (l *Layer[T]) Pending() int {
	return len(l.edits)
}

func (l *Layer[T]) Snapshot() T {
	return l.base
}

// Value folds pending edits over the snapshot.
func (l *Layer[T]) Value() T {
	v := l.base
	for _, e := range l.edits {
		v = e.fn(v)
	}
	return v
}
