package flow

import (
	"reflect"
	"testing"
)

func TestExtractAllFieldsFromSingleMessage(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "302021 to 110001 5kg 10 10 10")

	if s.FromPincode != "302021" {
		t.Errorf("FromPincode = %q, want 302021", s.FromPincode)
	}
	if s.ToPincode != "110001" {
		t.Errorf("ToPincode = %q, want 110001", s.ToPincode)
	}
	if s.WeightKg == nil || *s.WeightKg != 5 {
		t.Errorf("WeightKg = %v, want 5", s.WeightKg)
	}
	if s.LengthCm == nil || *s.LengthCm != 10 || s.WidthCm == nil || *s.WidthCm != 10 || s.HeightCm == nil || *s.HeightCm != 10 {
		t.Errorf("dimensions = %v %v %v, want 10 10 10", s.LengthCm, s.WidthCm, s.HeightCm)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	s := NewConversationState()
	msg := "from 302021 to 110001 weight 5 dimensions 10 20 30"
	ExtractQuoteFields(s, msg)
	snapshot := *s
	ExtractQuoteFields(s, msg)
	if !reflect.DeepEqual(snapshot, *s) {
		t.Errorf("second extraction changed state: %+v vs %+v", snapshot, *s)
	}
}

func TestExtractNeverOverwrites(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "from 302021 to 110001")
	ExtractQuoteFields(s, "400001 560001")
	if s.FromPincode != "302021" || s.ToPincode != "110001" {
		t.Errorf("pincodes overwritten: %q %q", s.FromPincode, s.ToPincode)
	}
}

func TestExtractExplicitAnchorsBeatOrder(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "to 110001 from 302021")
	if s.FromPincode != "302021" {
		t.Errorf("FromPincode = %q, want 302021", s.FromPincode)
	}
	if s.ToPincode != "110001" {
		t.Errorf("ToPincode = %q, want 110001", s.ToPincode)
	}
}

func TestExtractBarePincodesInOrder(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "302021 110001")
	if s.FromPincode != "302021" || s.ToPincode != "110001" {
		t.Errorf("pincodes = %q %q", s.FromPincode, s.ToPincode)
	}
}

func TestExtractLoneNumberRequiresBothPincodes(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "5")
	if s.WeightKg != nil {
		t.Errorf("lone number accepted as weight with no pincodes: %v", *s.WeightKg)
	}

	s = NewConversationState()
	s.FromPincode = "302021"
	s.ToPincode = "110001"
	ExtractQuoteFields(s, "5")
	if s.WeightKg == nil || *s.WeightKg != 5 {
		t.Errorf("lone number not taken as weight with both pincodes known: %v", s.WeightKg)
	}
}

func TestExtractWeightKeyword(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "weight 2.5")
	if s.WeightKg == nil || *s.WeightKg != 2.5 {
		t.Errorf("WeightKg = %v, want 2.5", s.WeightKg)
	}
}

func TestExtractDimensionsSeparators(t *testing.T) {
	for _, msg := range []string{"10x20x30", "10 x 20 x 30", "10×20×30", "10*20*30"} {
		s := NewConversationState()
		ExtractQuoteFields(s, msg)
		if s.LengthCm == nil || *s.LengthCm != 10 || *s.WidthCm != 20 || *s.HeightCm != 30 {
			t.Errorf("%q: dimensions = %v %v %v", msg, s.LengthCm, s.WidthCm, s.HeightCm)
		}
	}
}

func TestExtractDimensionKeywordsAllRequired(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "length 10 width 20")
	if s.LengthCm != nil || s.WidthCm != nil {
		t.Error("partial keyword dimensions must not commit")
	}

	s = NewConversationState()
	ExtractQuoteFields(s, "length 10 width 20 height 30")
	if s.LengthCm == nil || *s.LengthCm != 10 || *s.WidthCm != 20 || *s.HeightCm != 30 {
		t.Errorf("keyword dimensions = %v %v %v", s.LengthCm, s.WidthCm, s.HeightCm)
	}
}

func TestExtractResidualNumbersSkipPincodesAndWeight(t *testing.T) {
	s := NewConversationState()
	ExtractQuoteFields(s, "quote from 302021 to 110001 5kg 10 20 30")
	if s.LengthCm == nil || *s.LengthCm != 10 || *s.WidthCm != 20 || *s.HeightCm != 30 {
		t.Errorf("dimensions = %v %v %v, want 10 20 30", s.LengthCm, s.WidthCm, s.HeightCm)
	}
	if s.WeightKg == nil || *s.WeightKg != 5 {
		t.Errorf("WeightKg = %v, want 5", s.WeightKg)
	}
}

func TestExtractAmbiguousNumbersDoNotCommitDimensions(t *testing.T) {
	// Four leftover numbers: no way to tell weight from dimensions.
	s := NewConversationState()
	ExtractQuoteFields(s, "302021 110001 5 10 10 10")
	if s.LengthCm != nil {
		t.Errorf("ambiguous numbers committed as dimensions: %v", *s.LengthCm)
	}
}
