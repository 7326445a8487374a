package resolver

import "starmap-server/internal/sky"

// ResolvedObject is the wire form of an object after resolution.
type ResolvedObject struct {
	*sky.CelestialObject
	SAONumber *int `json:"sao_number,omitempty"`
	Tier      Tier `json:"tier,omitempty"`
}

func NewResolvedObject(obj *sky.CelestialObject, tier Tier) ResolvedObject {
	out := ResolvedObject{CelestialObject: obj, Tier: tier}
	if n, ok := obj.CatalogNumber(); ok {
		out.SAONumber = &n
	}
	return out
}

// Summary is BatchResult without the per-object tiers.
type Summary struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	AlreadySet int `json:"already_set"`
	Unresolved int `json:"unresolved"`
}

func (b BatchResult) Summary() Summary {
	return Summary{
		Total:      b.Total,
		Resolved:   b.Resolved,
		AlreadySet: b.AlreadySet,
		Unresolved: b.Unresolved,
	}
}

// Collect pairs each object with the tier that resolved it.
func (b BatchResult) Collect(objs []*sky.CelestialObject) []ResolvedObject {
	out := make([]ResolvedObject, len(objs))
	for i, obj := range objs {
		tier := TierNone
		if i < len(b.Tiers) {
			tier = b.Tiers[i]
		}
		out[i] = NewResolvedObject(obj, tier)
	}
	return out
}
