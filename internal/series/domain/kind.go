package series

import "strings"

// Kind identifies one of the four reconciled series.
type Kind int

const (
	KindUnknown Kind = iota
	KindGeneration
	KindDemand
	KindPrice
	KindCarbon
)

// LoadOrder is the fixed order in which relations are written.
var LoadOrder = []Kind{KindDemand, KindPrice, KindCarbon, KindGeneration}

// AllKinds lists every known kind.
var AllKinds = []Kind{KindGeneration, KindDemand, KindPrice, KindCarbon}

func (k Kind) String() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindDemand:
		return "demand"
	case KindPrice:
		return "price"
	case KindCarbon:
		return "carbon"
	default:
		return "unknown"
	}
}

// Relation returns the target table for the kind.
func (k Kind) Relation() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindDemand:
		return "demand"
	case KindPrice:
		return "cost"
	case KindCarbon:
		return "carbon"
	default:
		return ""
	}
}

// ParseKind resolves a kind name, accepting "cost" as an alias for price.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "generation":
		return KindGeneration, true
	case "demand":
		return KindDemand, true
	case "price", "cost":
		return KindPrice, true
	case "carbon":
		return KindCarbon, true
	default:
		return KindUnknown, false
	}
}
