package loopback

import (
	"testing"

	"github.com/heistp/homaflow/internal/pktio"
)

func wrap(pkts ...*pktio.Packet) []*pktio.Packet { return pkts }

func TestPairDeliversAcrossSides(t *testing.T) {
	pair := New(8, 0)
	pkt := pair.A.AllocPacket()
	if pkt == nil {
		t.Fatal("alloc returned nil under capacity")
	}
	pkt.Data[0] = 0xaa
	pkt.Len = 54
	accepted := pair.A.TxBurst(wrap(pkt))
	if accepted != 1 {
		t.Fatalf("accepted = %d, want 1", accepted)
	}
	got := pair.B.RxBurst(8)
	if len(got) != 1 || got[0].Data[0] != 0xaa {
		t.Fatalf("got %d packets, want 1 with first byte 0xaa", len(got))
	}
}

func TestMempoolExhaustion(t *testing.T) {
	pair := New(1, 0)
	if pair.A.AllocPacket() == nil {
		t.Fatal("first alloc should succeed")
	}
	if pair.A.AllocPacket() != nil {
		t.Fatal("second alloc should return nil: pool exhausted")
	}
}

func TestMaxAcceptPerCall(t *testing.T) {
	pair := New(8, 2)
	pkts := wrap(pair.A.AllocPacket(), pair.A.AllocPacket(), pair.A.AllocPacket())
	accepted := pair.A.TxBurst(pkts)
	if accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted)
	}
}
