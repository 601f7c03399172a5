package backend

import (
	"strconv"
	"strings"
)

// offsetNotesPrefix is the legacy sentinel older backends use to smuggle
// offset invoice ids through the free-text notes field. It is parsed on
// read for compatibility and never written back; new payments carry
// offset_invoice_ids as a structured field.
const offsetNotesPrefix = "@@offset:"

// parseLegacyOffsetIDs extracts offset invoice ids from a notes string
// carrying the legacy sentinel encoding, e.g. "@@offset:12,15 paid in full".
func parseLegacyOffsetIDs(notes string) []int64 {
	idx := strings.Index(notes, offsetNotesPrefix)
	if idx < 0 {
		return nil
	}
	rest := notes[idx+len(offsetNotesPrefix):]
	if end := strings.IndexAny(rest, " \t\n"); end >= 0 {
		rest = rest[:end]
	}
	var ids []int64
	for _, part := range strings.Split(rest, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// stripLegacyOffsetTag removes the sentinel segment, leaving the human
// text.
func stripLegacyOffsetTag(notes string) string {
	idx := strings.Index(notes, offsetNotesPrefix)
	if idx < 0 {
		return notes
	}
	rest := notes[idx+len(offsetNotesPrefix):]
	end := strings.IndexAny(rest, " \t\n")
	if end < 0 {
		return strings.TrimSpace(notes[:idx])
	}
	return strings.TrimSpace(notes[:idx] + rest[end+1:])
}
