// Package models defines tool structures for LLM function calling.
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ToolType defines the type of tool available to the LLM fallback.
type ToolType string

const (
	// ToolTypeGetQuote lets the LLM request a shipping quote once it has
	// extracted all required fields from the conversation.
	ToolTypeGetQuote ToolType = "get_quote"
	// ToolTypeGetTracking lets the LLM look up a shipment by tracking number.
	ToolTypeGetTracking ToolType = "get_tracking"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

// ValidPincode reports whether s is exactly six digits.
func ValidPincode(s string) bool {
	return pincodePattern.MatchString(s)
}

// FlexString decodes a JSON string or number into a string. LLM-proposed
// arguments are inconsistent about quoting pincodes, so both are accepted.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", string(data))
}

// String returns the trimmed string value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// QuoteToolParams defines the parameters for the get_quote tool call.
type QuoteToolParams struct {
	FromPincode FlexString `json:"from_pincode"`
	ToPincode   FlexString `json:"to_pincode"`
	Weight      float64    `json:"weight"`
	Length      float64    `json:"length"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
}

// Validate ensures all quote fields are present and well formed. The returned
// error names the offending field in user-facing terms so the fallback can
// re-prompt for exactly that field.
func (p *QuoteToolParams) Validate() error {
	if p.FromPincode.String() == "" {
		return fmt.Errorf("Please provide from pincode.")
	}
	if p.ToPincode.String() == "" {
		return fmt.Errorf("Please provide to pincode.")
	}
	if p.Weight <= 0 {
		return fmt.Errorf("Please provide weight.")
	}
	if p.Length <= 0 {
		return fmt.Errorf("Please provide length.")
	}
	if p.Width <= 0 {
		return fmt.Errorf("Please provide width.")
	}
	if p.Height <= 0 {
		return fmt.Errorf("Please provide height.")
	}
	if !ValidPincode(p.FromPincode.String()) {
		return fmt.Errorf("Invalid from pincode. It must be 6 digits.")
	}
	if !ValidPincode(p.ToPincode.String()) {
		return fmt.Errorf("Invalid to pincode. It must be 6 digits.")
	}
	return nil
}

// TrackingToolParams defines the parameters for the get_tracking tool call.
type TrackingToolParams struct {
	TrackingNumber FlexString `json:"tracking_number"`
}

// Validate ensures a tracking number is present.
func (p *TrackingToolParams) Validate() error {
	if p.TrackingNumber.String() == "" {
		return fmt.Errorf("Please provide tracking number.")
	}
	return nil
}
