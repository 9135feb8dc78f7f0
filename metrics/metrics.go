// Package metrics wires the datapath's flow and group table counters
// to Prometheus. A Registry is safe for concurrent use and safe to
// leave unregistered in tests -- every counter method tolerates a nil
// *Registry receiver by doing nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the Prometheus collectors exported by a datapath.
type Registry struct {
	flowLookups  *prometheus.CounterVec
	flowMatches  *prometheus.CounterVec
	flowEntries  *prometheus.GaugeVec
	flowExpired  *prometheus.CounterVec
	groupPackets *prometheus.CounterVec
	bucketBytes  *prometheus.CounterVec
}

// NewRegistry builds a Registry and registers its collectors with
// reg. Passing prometheus.NewRegistry() (rather than the global
// DefaultRegisterer) keeps tests hermetic.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		flowLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofswitch",
			Subsystem: "flow_table",
			Name:      "lookups_total",
			Help:      "Number of packet lookups performed against a flow table.",
		}, []string{"table"}),
		flowMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofswitch",
			Subsystem: "flow_table",
			Name:      "matches_total",
			Help:      "Number of packet lookups that matched a flow entry.",
		}, []string{"table"}),
		flowEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ofswitch",
			Subsystem: "flow_table",
			Name:      "entries",
			Help:      "Number of flow entries currently installed in a table.",
		}, []string{"table"}),
		flowExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofswitch",
			Subsystem: "flow_table",
			Name:      "expired_total",
			Help:      "Number of flow entries removed due to idle or hard timeout.",
		}, []string{"table", "reason"}),
		groupPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofswitch",
			Subsystem: "group_table",
			Name:      "packets_total",
			Help:      "Number of packets processed by a group entry.",
		}, []string{"group", "type"}),
		bucketBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofswitch",
			Subsystem: "group_table",
			Name:      "bucket_bytes_total",
			Help:      "Bytes forwarded through an individual group bucket.",
		}, []string{"group", "bucket"}),
	}

	if reg != nil {
		reg.MustRegister(r.flowLookups, r.flowMatches, r.flowEntries,
			r.flowExpired, r.groupPackets, r.bucketBytes)
	}

	return r
}

func (r *Registry) FlowLookup(table string) {
	if r == nil {
		return
	}
	r.flowLookups.WithLabelValues(table).Inc()
}

func (r *Registry) FlowMatch(table string) {
	if r == nil {
		return
	}
	r.flowMatches.WithLabelValues(table).Inc()
}

func (r *Registry) SetFlowEntries(table string, n int) {
	if r == nil {
		return
	}
	r.flowEntries.WithLabelValues(table).Set(float64(n))
}

func (r *Registry) FlowExpired(table, reason string) {
	if r == nil {
		return
	}
	r.flowExpired.WithLabelValues(table, reason).Inc()
}

func (r *Registry) GroupPacket(group, typ string) {
	if r == nil {
		return
	}
	r.groupPackets.WithLabelValues(group, typ).Inc()
}

func (r *Registry) BucketBytes(group, bucket string, n int) {
	if r == nil {
		return
	}
	r.bucketBytes.WithLabelValues(group, bucket).Add(float64(n))
}
