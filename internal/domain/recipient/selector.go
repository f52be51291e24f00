package recipient

import (
	"errors"
	"strings"
)

// Segment keywords reserved in a selector string.
const (
	SegmentAll      = "all"
	SegmentActive   = "active"
	SegmentInactive = "inactive"
)

// Selector kinds.
const (
	KindSegment  = "segment"
	KindExplicit = "explicit"
)

// ErrEmptySelector is returned when a selector string has no content.
var ErrEmptySelector = errors.New("recipient selector is empty")

// Recipient is a concrete deliverable address.
type Recipient struct {
	Address string
	Name    string
}

// Selector is either a named customer segment or an explicit address list.
// Exactly one of Segment or Addresses is meaningful, as given by Kind.
type Selector struct {
	Kind      string
	Segment   string
	Addresses []string
}

// ParseSelector turns the persisted selector string into a Selector.
// Reserved keywords are checked first; anything else is a comma-separated
// address list. Blank tokens are dropped.
// PRE: raw is the stored selector value
// POST: Returns a segment selector for all/active/inactive, explicit otherwise
func ParseSelector(raw string) (Selector, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Selector{}, ErrEmptySelector
	}
	switch trimmed {
	case SegmentAll, SegmentActive, SegmentInactive:
		return Selector{Kind: KindSegment, Segment: trimmed}, nil
	}
	return ExplicitSelector(strings.Split(trimmed, ",")), nil
}

// ExplicitSelector builds an explicit selector from a list of addresses.
// PRE: none
// POST: Addresses are trimmed and blanks removed; order is preserved
func ExplicitSelector(addresses []string) Selector {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return Selector{Kind: KindExplicit, Addresses: out}
}

// IsSegment reports whether the selector targets a customer segment.
func (s Selector) IsSegment() bool {
	return s.Kind == KindSegment
}

// String renders the selector back into its persisted form.
func (s Selector) String() string {
	if s.IsSegment() {
		return s.Segment
	}
	return strings.Join(s.Addresses, ",")
}

// Addresses returns the bare addresses of a recipient list in order.
func Addresses(list []Recipient) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.Address
	}
	return out
}

// JoinAddresses renders a recipient list for the campaign audit record.
func JoinAddresses(list []Recipient) string {
	return strings.Join(Addresses(list), ", ")
}
