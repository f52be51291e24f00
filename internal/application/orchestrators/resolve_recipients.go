package orchestrators

import (
	"context"

	customerStore "crmmail/internal/adapters/storage/customer"
	"crmmail/internal/domain/customer"
	"crmmail/internal/domain/delivery"
	"crmmail/internal/domain/recipient"
)

// ResolveRecipientsInput carries a parsed recipient selector.
type ResolveRecipientsInput struct {
	Selector recipient.Selector
}

// ResolveRecipientsDeps holds dependencies for ResolveRecipients.
type ResolveRecipientsDeps struct {
	Customers CustomerLister
}

// segmentStatus maps selector segments to the customer status they filter on.
// "all" has no filter and prospects are only reachable through it.
var segmentStatus = map[string]string{
	recipient.SegmentAll:      "",
	recipient.SegmentActive:   customer.StatusActive,
	recipient.SegmentInactive: customer.StatusDormant,
}

// ExecuteResolveRecipients turns a selector into concrete addresses.
// PRE: in.Selector was built by recipient.ParseSelector or ExplicitSelector
// POST: Returns at least one recipient, or a NoRecipients/StoreError delivery.Error
func ExecuteResolveRecipients(ctx context.Context, in ResolveRecipientsInput, deps ResolveRecipientsDeps) ([]recipient.Recipient, error) {
	var out []recipient.Recipient

	if in.Selector.IsSegment() {
		status, ok := segmentStatus[in.Selector.Segment]
		if !ok {
			return nil, delivery.NoRecipients()
		}
		customers, err := deps.Customers.List(ctx, customerStore.ListFilter{Status: status})
		if err != nil {
			return nil, delivery.Store(err)
		}
		out = make([]recipient.Recipient, 0, len(customers))
		for _, c := range customers {
			out = append(out, recipient.Recipient{Address: c.Email, Name: c.Name})
		}
	} else {
		out = make([]recipient.Recipient, 0, len(in.Selector.Addresses))
		for _, addr := range in.Selector.Addresses {
			out = append(out, recipient.Recipient{Address: addr})
		}
	}

	if len(out) == 0 {
		return nil, delivery.NoRecipients()
	}
	return out, nil
}
