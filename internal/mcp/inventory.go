package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// loadInventory reads and validates the on-disk inventory descriptor. The
// document may be either {"servers": {id -> entry}} or a bare {id ->
// entry} map at the top level (§6). Entries are returned sorted by id so
// initialization order is deterministic.
func loadInventory(path string) ([]*ServerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: reading inventory %q: %w", path, err)
	}

	var wrapped struct {
		Servers map[string]ServerEntry `json:"servers"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Servers != nil {
		return toSortedEntries(wrapped.Servers)
	}

	var bare map[string]ServerEntry
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("mcp: parsing inventory %q: %w", path, err)
	}
	return toSortedEntries(bare)
}

func toSortedEntries(m map[string]ServerEntry) ([]*ServerEntry, error) {
	entries := make([]*ServerEntry, 0, len(m))
	for id, entry := range m {
		e := entry
		e.ID = id
		if err := e.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
