package flowtable

// SenderTable holds every configured flow's sender-side record, indexed by
// FlowID across the whole configuration (not just locally-sourced flows).
type SenderTable struct {
	Flows []SenderFlow
}

// NewSenderTable builds a SenderTable from the parsed flow configs, indexed
// by each config's FlowID rather than its position in the file — matching
// flowgen.c's init(), which indexes sender_flows[flow_id] directly and so
// tolerates a flows file whose lines aren't in ascending flow_id order.
func NewSenderTable(configs []Config) *SenderTable {
	t := &SenderTable{Flows: make([]SenderFlow, tableSize(configs))}
	for _, c := range configs {
		t.Flows[c.ID] = SenderFlow{
			ID:         c.ID,
			SrcIP:      c.SrcIP,
			DstIP:      c.DstIP,
			SrcPort:    c.SrcPort,
			DstPort:    c.DstPort,
			FlowSize:   c.FlowSize,
			StartCfg:   c.StartCfg,
			RemainSize: c.FlowSize,
			State:      SenderPending,
		}
	}
	return t
}

// Get returns the record for id.
func (t *SenderTable) Get(id FlowID) *SenderFlow {
	return &t.Flows[id]
}

// Len returns the total flow count (spec.md's sender_total_flow_num tracks
// local-sender flows separately; this is the full configured set).
func (t *SenderTable) Len() int { return len(t.Flows) }

// ReceiverTable holds every configured flow's receiver-side record. Per
// spec.md §4.3, these fields are informational until the first
// GRANT_REQUEST for the flow overwrites them.
type ReceiverTable struct {
	Flows []ReceiverFlow
}

// NewReceiverTable builds a ReceiverTable from the parsed flow configs,
// indexed by each config's FlowID rather than its position in the file;
// see NewSenderTable.
func NewReceiverTable(configs []Config) *ReceiverTable {
	t := &ReceiverTable{Flows: make([]ReceiverFlow, tableSize(configs))}
	for _, c := range configs {
		t.Flows[c.ID] = ReceiverFlow{
			ID:       c.ID,
			SrcIP:    c.SrcIP,
			DstIP:    c.DstIP,
			SrcPort:  c.SrcPort,
			DstPort:  c.DstPort,
			FlowSize: c.FlowSize,
			StartCfg: c.StartCfg,
			State:    ReceiverPending,
		}
	}
	return t
}

// tableSize returns the slice length needed to index every config directly
// by its FlowID: one past the largest ID present.
func tableSize(configs []Config) int {
	n := 0
	for _, c := range configs {
		if int(c.ID)+1 > n {
			n = int(c.ID) + 1
		}
	}
	return n
}

// Get returns the record for id.
func (t *ReceiverTable) Get(id FlowID) *ReceiverFlow {
	return &t.Flows[id]
}

// Len returns the total configured flow count.
func (t *ReceiverTable) Len() int { return len(t.Flows) }
