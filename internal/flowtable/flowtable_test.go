package flowtable

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFlows(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "flow_info.txt")
	contents := "0 10 0 0 1 10 0 0 2 1000 2000 1000 0.0\n1 10 0 0 1 10 0 0 2 1001 2001 3000 0.5\n"
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	cfgs, err := LoadFlows(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("got %d configs, want 2", len(cfgs))
	}
	if cfgs[0].FlowSize != 1000 || cfgs[1].StartCfg != 0.5 {
		t.Errorf("unexpected parse: %+v %+v", cfgs[0], cfgs[1])
	}
	st := NewSenderTable(cfgs)
	rt := NewReceiverTable(cfgs)
	if st.Get(1).RemainSize != 3000 {
		t.Errorf("sender remain_size = %d, want 3000", st.Get(1).RemainSize)
	}
	if rt.Get(0).State != ReceiverPending {
		t.Errorf("receiver state = %v, want Pending", rt.Get(0).State)
	}
}

func TestLoadFlowsSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "flow_info.txt")
	contents := "not a flow line\n0 10 0 0 1 10 0 0 2 1000 2000 1000 0.0\n"
	os.WriteFile(p, []byte(contents), 0644)
	cfgs, err := LoadFlows(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 1 {
		t.Fatalf("got %d configs, want 1", len(cfgs))
	}
}
