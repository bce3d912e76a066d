package directory

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadAndServerID(t *testing.T) {
	dir := t.TempDir()
	macPath := writeFile(t, dir, "eth_addr_info.txt", "0 1 2 3 4 5\n10 11 12 13 14 15\n")
	ipPath := writeFile(t, dir, "ip_addr_info.txt", "10 0 0 1\n10 0 0 2\n")

	d, err := Load(macPath, ipPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.MAC) != 2 || len(d.IP) != 2 {
		t.Fatalf("got %d MACs, %d IPs", len(d.MAC), len(d.IP))
	}
	want := uint32(10)<<24 | 2
	if d.IP[1] != want {
		t.Errorf("ip[1] = %x, want %x", d.IP[1], want)
	}
	if id := d.ServerID(want); id != 1 {
		t.Errorf("ServerID = %d, want 1", id)
	}
	if id := d.ServerID(0xffffffff); id != Unknown {
		t.Errorf("ServerID for unknown ip = %d, want Unknown", id)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	macPath := writeFile(t, dir, "eth_addr_info.txt", "0 1 2 3 4 5\ngarbage\n6 7 8 9 10 11\n")
	ipPath := writeFile(t, dir, "ip_addr_info.txt", "10 0 0 1\n10 0 0 2\n")

	d, err := Load(macPath, ipPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.MAC) != 2 {
		t.Errorf("got %d MACs, want 2 (malformed line skipped)", len(d.MAC))
	}
}
