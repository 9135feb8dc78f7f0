package datapath

import (
	"fmt"
	"sync"

	"github.com/netrack/ofswitch/ofp"
)

// PortState reports the link-level state of a port, consulted by the
// group table's fast-failover liveness check.
type PortState struct {
	Live bool
}

// PortSink receives frames forwarded out of a single physical or
// logical port, e.g. a netdev, a pcap writer, or a test double.
type PortSink interface {
	Send(pkt *Packet) error
}

// Ports abstracts the datapath's notion of physical/logical ports:
// sending a frame out one port, flooding it to every port but the
// ingress, and resolving a port number to its current state.
type Ports interface {
	Output(port ofp.PortNo, pkt *Packet) error
	OutputAll(ingress ofp.PortNo, pkt *Packet) error
	Lookup(port ofp.PortNo) (PortState, bool)
}

// MapPorts is an in-memory Ports implementation keyed by port number,
// suitable for tests and for a datapath whose ports are all
// software-defined sinks.
type MapPorts struct {
	mu    sync.RWMutex
	sinks map[ofp.PortNo]PortSink
	state map[ofp.PortNo]PortState
}

// NewMapPorts returns an empty MapPorts.
func NewMapPorts() *MapPorts {
	return &MapPorts{
		sinks: make(map[ofp.PortNo]PortSink),
		state: make(map[ofp.PortNo]PortState),
	}
}

// Register adds or replaces the sink and initial state for a port
// number. Registering PortController, PortLocal, or another reserved
// number is a programmer error, not a runtime condition: Register
// panics rather than silently shadowing a reserved port.
func (m *MapPorts) Register(port ofp.PortNo, sink PortSink) {
	if port >= ofp.PortMax {
		panic(fmt.Sprintf("datapath: cannot register reserved port %d", port))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sinks[port] = sink
	m.state[port] = PortState{Live: true}
}

// SetLive updates the liveness of a previously registered port.
func (m *MapPorts) SetLive(port ofp.PortNo, live bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state[port]
	s.Live = live
	m.state[port] = s
}

// Output sends pkt out the named port.
func (m *MapPorts) Output(port ofp.PortNo, pkt *Packet) error {
	m.mu.RLock()
	sink, ok := m.sinks[port]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("datapath: unknown output port %d", port)
	}
	return sink.Send(pkt)
}

// OutputAll sends a clone of pkt out every registered port except
// ingress.
func (m *MapPorts) OutputAll(ingress ofp.PortNo, pkt *Packet) error {
	m.mu.RLock()
	sinks := make(map[ofp.PortNo]PortSink, len(m.sinks))
	for port, sink := range m.sinks {
		sinks[port] = sink
	}
	m.mu.RUnlock()

	for port, sink := range sinks {
		if port == ingress {
			continue
		}
		if err := sink.Send(pkt.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// Lookup reports the state of a registered port.
func (m *MapPorts) Lookup(port ofp.PortNo) (PortState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.state[port]
	return s, ok
}

// PortLive implements the group table's PortLiveness interface.
func (m *MapPorts) PortLive(port ofp.PortNo) bool {
	s, ok := m.Lookup(port)
	if !ok {
		return true
	}
	return s.Live
}
