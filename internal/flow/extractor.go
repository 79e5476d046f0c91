// Package flow implements the shipping assistant's dialogue engine.
//
// This file extracts quote fields from free text. Extraction is a pure slot
// merge: it never errors and never overwrites a slot that is already set, so
// re-running it over the same message is a no-op.
package flow

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fromAnchorRe  = regexp.MustCompile(`\bfrom\s+(\d{6})\b`)
	toAnchorRe    = regexp.MustCompile(`\bto\s+(\d{6})\b`)
	pincodeRe     = regexp.MustCompile(`\b\d{6}\b`)
	weightKgRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*kg\b`)
	weightWordRe  = regexp.MustCompile(`weight\s*(\d+(?:\.\d+)?)`)
	bareNumberRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	dimsSepRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[x×*]\s*(\d+(?:\.\d+)?)\s*[x×*]\s*(\d+(?:\.\d+)?)`)
	dimsWordRe    = regexp.MustCompile(`dimensions?\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)`)
	lengthWordRe  = regexp.MustCompile(`length\s*(\d+(?:\.\d+)?)`)
	widthWordRe   = regexp.MustCompile(`width\s*(\d+(?:\.\d+)?)`)
	heightWordRe  = regexp.MustCompile(`height\s*(\d+(?:\.\d+)?)`)
	numberTokenRe = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

func floatPtr(f float64) *float64 { return &f }

func intPtr(n int) *int { return &n }

// ExtractQuoteFields merges any quote fields found in message into state.
func ExtractQuoteFields(s *ConversationState, message string) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return
	}

	extractPincodes(s, msg)
	weightToken := extractWeight(s, msg)
	extractDimensions(s, msg, weightToken)
}

// extractPincodes fills from/to pincodes, preferring explicit "from <pin>" /
// "to <pin>" anchors over positional order.
func extractPincodes(s *ConversationState, msg string) {
	if s.FromPincode == "" {
		if m := fromAnchorRe.FindStringSubmatch(msg); m != nil {
			s.FromPincode = m[1]
		}
	}
	if s.ToPincode == "" {
		if m := toAnchorRe.FindStringSubmatch(msg); m != nil {
			s.ToPincode = m[1]
		}
	}

	for _, pin := range pincodeRe.FindAllString(msg, -1) {
		if pin == s.FromPincode || pin == s.ToPincode {
			continue
		}
		if s.FromPincode == "" {
			s.FromPincode = pin
			continue
		}
		if s.ToPincode == "" {
			s.ToPincode = pin
		}
	}
}

// extractWeight fills the weight slot and returns the raw token it consumed,
// so the dimension pass can exclude it from the residual numbers.
func extractWeight(s *ConversationState, msg string) string {
	if s.WeightKg != nil {
		// Still report the token so it is not mistaken for a dimension.
		if m := weightKgRe.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
		return ""
	}

	if m := weightKgRe.FindStringSubmatch(msg); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.WeightKg = floatPtr(w)
			return m[1]
		}
	}
	if m := weightWordRe.FindStringSubmatch(msg); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.WeightKg = floatPtr(w)
			return m[1]
		}
	}

	// A lone number is a weight only once both pincodes are known, so a
	// partially typed pincode is never swallowed as a weight.
	if bareNumberRe.MatchString(msg) && s.FromPincode != "" && s.ToPincode != "" {
		if w, err := strconv.ParseFloat(msg, 64); err == nil {
			s.WeightKg = floatPtr(w)
			return msg
		}
	}
	return ""
}

// extractDimensions fills length, width and height. All three commit together
// or not at all.
func extractDimensions(s *ConversationState, msg, weightToken string) {
	if s.LengthCm != nil || s.WidthCm != nil || s.HeightCm != nil {
		return
	}

	if m := dimsSepRe.FindStringSubmatch(msg); m != nil {
		setDimensions(s, m[1], m[2], m[3])
		return
	}
	if m := dimsWordRe.FindStringSubmatch(msg); m != nil {
		setDimensions(s, m[1], m[2], m[3])
		return
	}

	lm := lengthWordRe.FindStringSubmatch(msg)
	wm := widthWordRe.FindStringSubmatch(msg)
	hm := heightWordRe.FindStringSubmatch(msg)
	if lm != nil && wm != nil && hm != nil {
		setDimensions(s, lm[1], wm[1], hm[1])
		return
	}

	// Residual rule: after discounting pincodes and the weight, exactly three
	// bare numbers are taken as L W H.
	var residual []string
	weightSkipped := false
	for _, tok := range numberTokenRe.FindAllString(msg, -1) {
		if tok == s.FromPincode || tok == s.ToPincode {
			continue
		}
		if !weightSkipped && weightToken != "" && tok == weightToken {
			weightSkipped = true
			continue
		}
		residual = append(residual, tok)
	}
	if len(residual) == 3 {
		setDimensions(s, residual[0], residual[1], residual[2])
	}
}

func setDimensions(s *ConversationState, l, w, h string) {
	lf, errL := strconv.ParseFloat(l, 64)
	wf, errW := strconv.ParseFloat(w, 64)
	hf, errH := strconv.ParseFloat(h, 64)
	if errL != nil || errW != nil || errH != nil {
		return
	}
	s.LengthCm = floatPtr(lf)
	s.WidthCm = floatPtr(wf)
	s.HeightCm = floatPtr(hf)
}
