package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainTable = "tapdance/table/v1"
	DomainEntry = "tapdance/entry/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TableHash computes a stable identity for a dance table. Two tables with
// the same name, layers and actions hash the same regardless of map order.
func TableHash(t *DanceTable) (string, error) {
	canonical, err := MarshalCanonical(tableObject(t))
	if err != nil {
		return "", fmt.Errorf("TableHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

// MustTableHash is like TableHash but panics on error.
// Use only in tests or when the table is known to be valid.
func MustTableHash(t *DanceTable) string {
	h, err := TableHash(t)
	if err != nil {
		panic(err)
	}
	return h
}

// EntryID computes the content-addressed ID of a trace entry within a
// session. Recording the same entry twice yields the same ID.
func EntryID(sessionID string, e TraceEntry) (string, error) {
	obj := map[string]any{
		"session_id":  sessionID,
		"seq":         e.Seq,
		"kind":        string(e.Kind),
		"at":          uint32(e.At),
		"dance":       int(e.Dance),
		"category":    e.Category.String(),
		"count":       int(e.State.Count),
		"pressed":     e.State.Pressed,
		"interrupted": e.State.Interrupted,
	}
	if e.Input != nil {
		input := map[string]any{
			"kind":  e.Input.Kind.String(),
			"key":   string(e.Input.Key),
			"dance": int(e.Input.Dance),
			"at":    uint32(e.Input.At),
		}
		if e.Input.Macro != "" {
			input["macro"] = e.Input.Macro
		}
		obj["input"] = input
	}
	if e.Phase != "" {
		obj["phase"] = string(e.Phase)
	}
	if e.Effect != nil {
		obj["effect"] = e.Effect.String()
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

func tableObject(t *DanceTable) map[string]any {
	dances := make([]any, len(t.Dances))
	for i, d := range t.Dances {
		actions := make(map[string]any, len(d.Actions))
		for cat, a := range d.Actions {
			actions[cat.String()] = actionObject(a)
		}
		dances[i] = map[string]any{
			"id":      int(d.ID),
			"name":    d.Name,
			"actions": actions,
		}
	}
	layers := t.Layers
	if layers == nil {
		layers = []string{}
	}
	obj := map[string]any{
		"name":   t.Name,
		"layers": layers,
		"dances": dances,
	}
	// Omitted when empty.
	if len(t.Macros) > 0 {
		macros := make([]any, len(t.Macros))
		for i, m := range t.Macros {
			macros[i] = map[string]any{"name": m.Name, "action": actionObject(m.Action)}
		}
		obj["macros"] = macros
	}
	return obj
}

func actionObject(a Action) map[string]any {
	return map[string]any{
		"begin": effectStrings(a.Begin),
		"end":   effectStrings(a.End),
	}
}

func effectStrings(effects []Effect) []string {
	out := make([]string, len(effects))
	for i, e := range effects {
		out[i] = e.String()
	}
	return out
}
