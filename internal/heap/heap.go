package heap

import (
	"sync"

	"github.com/daimatz/gojvm/internal/classfile"
)

// Heap is an append-only, offset-addressed table of heap entries. Offsets
// are monotonically assigned at allocation time and never reused; there is
// no compaction and no garbage collection, per spec.md §4.4. Grounded on
// original_source/src/objects/heap.rs.
type Heap struct {
	mu      sync.RWMutex
	entries []heapEntry
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{}
}

// AllocInstance allocates a zero-initialized instance with fieldCount slots.
func (h *Heap) AllocInstance(class *classfile.ClassFile, fieldCount int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	offset := len(h.entries)
	h.entries = append(h.entries, newInstanceObject(offset, class, fieldCount))
	return offset
}

// AllocRefArray allocates a reference array of the given length.
func (h *Heap) AllocRefArray(arrayClass, elementClass *classfile.ClassFile, length int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	offset := len(h.entries)
	h.entries = append(h.entries, newReferenceArrayObject(offset, arrayClass, elementClass, length))
	return offset
}

// AllocTypeArray allocates a primitive array of the given length.
func (h *Heap) AllocTypeArray(arrayType ArrayType, length int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	offset := len(h.entries)
	h.entries = append(h.entries, newTypeArrayObject(offset, arrayType, length))
	return offset
}

// GetInstance returns the instance at offset, or Null if offset is out of
// range or names an entry of a different kind.
func (h *Heap) GetInstance(offset int) Reference[*InstanceObject] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.at(offset)
	if !ok {
		return Null[*InstanceObject]()
	}
	inst, ok := entry.(*InstanceObject)
	if !ok {
		return Null[*InstanceObject]()
	}
	return Of(inst)
}

// GetRefArray returns the reference array at offset, or Null on mismatch.
func (h *Heap) GetRefArray(offset int) Reference[*ReferenceArrayObject] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.at(offset)
	if !ok {
		return Null[*ReferenceArrayObject]()
	}
	arr, ok := entry.(*ReferenceArrayObject)
	if !ok {
		return Null[*ReferenceArrayObject]()
	}
	return Of(arr)
}

// GetTypeArray returns the primitive array at offset, or Null on mismatch.
func (h *Heap) GetTypeArray(offset int) Reference[*TypeArrayObject] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.at(offset)
	if !ok {
		return Null[*TypeArrayObject]()
	}
	arr, ok := entry.(*TypeArrayObject)
	if !ok {
		return Null[*TypeArrayObject]()
	}
	return Of(arr)
}

// Len returns the number of allocated entries.
func (h *Heap) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *Heap) at(offset int) (heapEntry, bool) {
	if offset < 0 || offset >= len(h.entries) {
		return nil, false
	}
	return h.entries[offset], true
}
