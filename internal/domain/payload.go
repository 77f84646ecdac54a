package domain

import (
	"encoding/json"
	"sort"
)

// Payload maps a tag slug to the product ids that should be its members
// once the entry executes. The desired set is the unit of comparison:
// applying the same payload twice converges to the same membership.
type Payload map[string][]int64

// Normalize returns a copy with duplicate and non-positive product ids
// dropped and the remainder sorted. Always run before persistence.
func (p Payload) Normalize() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for tag, ids := range p {
		seen := make(map[int64]struct{}, len(ids))
		clean := make([]int64, 0, len(ids))
		for _, id := range ids {
			if id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			clean = append(clean, id)
		}
		sort.Slice(clean, func(i, j int) bool { return clean[i] < clean[j] })
		out[tag] = clean
	}
	return out
}

// Tags returns the payload's tag slugs in sorted order, so callers iterate
// deterministically.
func (p Payload) Tags() []string {
	tags := make([]string, 0, len(p))
	for tag := range p {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// DecodePayload parses the persisted JSON form. Callers are expected to
// degrade to an empty payload on error rather than failing a run.
func DecodePayload(raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, err
	}
	return p.Normalize(), nil
}

// Encode marshals the normalized payload for persistence.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p.Normalize())
}
