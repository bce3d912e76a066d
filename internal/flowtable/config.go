package flowtable

import (
	"bufio"
	"fmt"
	"os"
)

// Config is one parsed line of the flows file: "flow_id src_a src_b src_c
// src_d dst_a dst_b dst_c dst_d src_port dst_port flow_size start_time".
type Config struct {
	ID       FlowID
	SrcIP    uint32
	DstIP    uint32
	SrcPort  uint16
	DstPort  uint16
	FlowSize Bytes
	StartCfg float64
}

// LoadFlows parses the flows file named in spec.md §6 (flow_info.txt).
// Malformed lines are logged and skipped; loading is best-effort per
// spec.md §7's configuration-error taxonomy.
func LoadFlows(path string) ([]Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flowtable: %w", err)
	}
	defer f.Close()

	var out []Config
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		var id uint16
		var sa, sb, sc_, sd, da, db, dc, dd int
		var sport, dport uint16
		var size uint32
		var start float64
		n, err := fmt.Sscanf(text, "%d %d %d %d %d %d %d %d %d %d %d %d %f",
			&id, &sa, &sb, &sc_, &sd, &da, &db, &dc, &dd, &sport, &dport, &size, &start)
		if err != nil || n != 13 {
			fmt.Fprintf(os.Stderr, "flowtable: malformed flow line %d in %s, skipping\n", line, path)
			continue
		}
		out = append(out, Config{
			ID:       FlowID(id),
			SrcIP:    uint32(sa)<<24 | uint32(sb)<<16 | uint32(sc_)<<8 | uint32(sd),
			DstIP:    uint32(da)<<24 | uint32(db)<<16 | uint32(dc)<<8 | uint32(dd),
			SrcPort:  sport,
			DstPort:  dport,
			FlowSize: Bytes(size),
			StartCfg: start,
		})
	}
	return out, sc.Err()
}
