// Package flow implements the shipping assistant's dialogue engine.
//
// This file defines the quote slot schema. One table drives the missing-field
// prompt in the deterministic path and keeps the field order stable.
package flow

// quoteSlot describes one required quote field.
type quoteSlot struct {
	name   string
	label  string
	filled func(*ConversationState) bool
}

// quoteSlots lists the six required quote fields in prompt order.
var quoteSlots = []quoteSlot{
	{name: "from_pincode", label: "from pincode", filled: func(s *ConversationState) bool { return s.FromPincode != "" }},
	{name: "to_pincode", label: "to pincode", filled: func(s *ConversationState) bool { return s.ToPincode != "" }},
	{name: "weight", label: "weight", filled: func(s *ConversationState) bool { return s.WeightKg != nil }},
	{name: "length", label: "length", filled: func(s *ConversationState) bool { return s.LengthCm != nil }},
	{name: "width", label: "width", filled: func(s *ConversationState) bool { return s.WidthCm != nil }},
	{name: "height", label: "height", filled: func(s *ConversationState) bool { return s.HeightCm != nil }},
}

// missingQuoteSlots returns the labels of unfilled quote fields in slot order.
func missingQuoteSlots(s *ConversationState) []string {
	var missing []string
	for _, slot := range quoteSlots {
		if !slot.filled(s) {
			missing = append(missing, slot.label)
		}
	}
	return missing
}
