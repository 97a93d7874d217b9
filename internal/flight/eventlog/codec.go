package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"unicode/utf16"

	"github.com/gowebpki/jcs"

	"flighttracker/internal/flight/models"
)

// typedFields are canonicalized with RFC 8785. All other members are
// free-form and keep their numbers exactly as written, since RFC 8785 would
// round them through float64.
var typedFields = []string{
	models.FieldID,
	models.FieldStatus,
	models.FieldCreatedAt,
	models.FieldOwner,
	models.FieldTeamID,
	models.FieldOrgID,
}

// EncodeLine renders f as one compact JSON line ending in '\n'. Members are
// sorted in RFC 8785 order.
func EncodeLine(f *models.Flight) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal flight: %w", err)
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("split flight members: %w", err)
	}

	typed := make(map[string]json.RawMessage, len(typedFields))
	for _, name := range typedFields {
		if v, ok := members[name]; ok {
			typed[name] = v
		}
	}
	typedRaw, err := json.Marshal(typed)
	if err != nil {
		return nil, fmt.Errorf("marshal typed members: %w", err)
	}
	canonical, err := jcs.Transform(typedRaw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize flight: %w", err)
	}
	if err := json.Unmarshal(canonical, &typed); err != nil {
		return nil, fmt.Errorf("split canonical members: %w", err)
	}
	maps.Copy(members, typed)

	return writeObject(members)
}

// writeObject emits members with keys ordered by UTF-16 code units. Values
// are written as given; json.Marshal has already compacted them.
func writeObject(members map[string]json.RawMessage) ([]byte, error) {
	keys := slices.SortedFunc(maps.Keys(members), func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, fmt.Errorf("encode member name %q: %w", k, err)
		}
		buf.Truncate(buf.Len() - 1) // Encode appends '\n'
		buf.WriteByte(':')
		buf.Write(members[k])
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// DecodeLines parses a partition body. Blank lines are ignored. Lines that are
// not a JSON object, or lack id or status, are counted in skipped.
func DecodeLines(data []byte) (flights []models.Flight, skipped int) {
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var f models.Flight
		if err := json.Unmarshal(line, &f); err != nil || !f.HasRequired() {
			skipped++
			continue
		}
		flights = append(flights, f)
	}
	return flights, skipped
}

// appendLine joins existing partition content and a new line, restoring a
// missing trailing newline first.
func appendLine(existing, line []byte) []byte {
	out := make([]byte, 0, len(existing)+len(line)+1)
	out = append(out, existing...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return append(out, line...)
}
