// Package buckets splits a graph snapshot into the named JSON payloads that
// the SQL snapshotters store one row apiece.
package buckets

import (
	"encoding/json"
	"fmt"

	"ontosim/pkg/domain"
)

// Names lists the buckets in write order.
var Names = []string{"objects", "secured", "links", "timeSeries"}

// Encode marshals each snapshot section into its bucket payload.
func Encode(snap domain.Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Names))
	for _, name := range Names {
		data, err := json.Marshal(section(&snap, name))
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// Decode reverses Encode. Unknown buckets and empty payloads are ignored.
func Decode(payloads map[string][]byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	for name, payload := range payloads {
		target := section(&snap, name)
		if target == nil || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snap, nil
}

func section(snap *domain.Snapshot, name string) any {
	switch name {
	case "objects":
		return &snap.Objects
	case "secured":
		return &snap.Secured
	case "links":
		return &snap.Links
	case "timeSeries":
		return &snap.TimeSeries
	}
	return nil
}
