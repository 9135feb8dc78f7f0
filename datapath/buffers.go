package datapath

import "sync"

// Buffers abstracts the datapath's packet-buffer pool: the mechanism
// by which a PacketIn can refer a controller to a packet held at the
// switch, so a later FlowMod or PacketOut can reference it by id
// instead of resending the whole frame.
type Buffers interface {
	Save(pkt *Packet) uint32
	Retrieve(id uint32) (*Packet, bool)
	Discard(id uint32)
}

// MapBuffers is an in-memory, monotonically-keyed Buffers
// implementation. Entries are not evicted on a timer; Discard is
// called explicitly once a buffered packet is consumed by a
// matching FlowMod or PacketOut.
type MapBuffers struct {
	mu      sync.Mutex
	nextID  uint32
	entries map[uint32]*Packet
}

// NewMapBuffers returns an empty MapBuffers.
func NewMapBuffers() *MapBuffers {
	return &MapBuffers{entries: make(map[uint32]*Packet)}
}

// Save stores pkt and returns the id a controller can later use to
// retrieve it.
func (b *MapBuffers) Save(pkt *Packet) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.entries[id] = pkt
	return id
}

// Retrieve returns the packet saved under id, if any.
func (b *MapBuffers) Retrieve(id uint32) (*Packet, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pkt, ok := b.entries[id]
	return pkt, ok
}

// Discard drops the entry saved under id.
func (b *MapBuffers) Discard(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, id)
}
