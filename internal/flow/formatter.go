// Package flow implements the shipping assistant's dialogue engine.
//
// This file renders provider results into chat responses. Every formatter
// checks the embedded statusCode before touching the data section.
package flow

import (
	"fmt"
	"strconv"

	"github.com/avocadolabs/photon/internal/models"
)

// formatFloat renders a float without a synthetic decimal tail.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloatPtr(p *float64) string {
	if p == nil {
		return "?"
	}
	return formatFloat(*p)
}

// FormatQuote renders a quote result and, on success, caches the returned
// service list into state under a fresh generation tag so the user can select
// one by number. The returned bool reports whether the quote succeeded.
func FormatQuote(s *ConversationState, result *models.QuoteResult) (*models.ChatResponse, bool) {
	if result.StatusCode != 200 {
		msg := result.Error
		if msg == "" {
			msg = result.Message
		}
		return &models.ChatResponse{Response: fmt.Sprintf("Quote Error: %s", msg)}, false
	}

	services := result.Data.ServicesOnDate
	if len(services) == 0 {
		return &models.ChatResponse{Response: "No courier services available."}, false
	}

	s.SetServiceList(services)

	header := ""
	if result.FromDetails != nil && result.ToDetails != nil {
		header = fmt.Sprintf(
			"📍 From: %s (%s), %s\n📍 To: %s (%s), %s\n\n",
			result.FromDetails.City, result.FromDetails.State, result.FromDetails.Country,
			result.ToDetails.City, result.ToDetails.State, result.ToDetails.Country,
		)
	}
	header += fmt.Sprintf(
		"⚖️ Weight: %s kg\n📏 Dimensions: %s x %s x %s cm\n\n📦 Available Shipping Options:\n\n",
		formatFloatPtr(s.WeightKg), formatFloatPtr(s.LengthCm), formatFloatPtr(s.WidthCm), formatFloatPtr(s.HeightCm),
	)

	options := make([]models.ChatOption, 0, len(services))
	for i, svc := range services {
		label := fmt.Sprintf(
			"• %s - %s\n💰 ₹ %s\n📅 %s (%s days)",
			svc.CarrierCode, svc.ServiceDescription,
			formatFloat(svc.TotalCharges), svc.ArrivalDate, svc.BusinessDaysInTransit,
		)
		options = append(options, models.ChatOption{Label: label, Value: strconv.Itoa(i + 1)})
	}

	return &models.ChatResponse{Response: header, Options: options}, true
}

// FormatShipment renders a shipment-creation result.
func FormatShipment(result *models.ShipmentResult) *models.ChatResponse {
	if result.StatusCode != 200 {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		if msg == "" {
			msg = "Shipment failed."
		}
		return &models.ChatResponse{Response: msg}
	}

	tracking := result.Data.TrackingNo
	if tracking == "" {
		tracking = result.Data.TrackingNumber
	}
	return &models.ChatResponse{Response: fmt.Sprintf(
		"✅ Shipment Created Successfully!\n\n🚚 Courier: %s\n📦 Tracking Number: %s\n🧾 AWB: %s",
		result.Data.CarrierCode, tracking, result.Data.AWBNumber,
	)}
}

// FormatTracking renders a tracking result.
func FormatTracking(result *models.TrackingResult) *models.ChatResponse {
	if result.StatusCode != 200 {
		msg := result.Error
		if msg == "" {
			msg = "Tracking failed."
		}
		return &models.ChatResponse{Response: msg}
	}

	return &models.ChatResponse{Response: fmt.Sprintf(
		"🚚 Tracking Status\n\nStatus: %s\nLocation: %s",
		result.Data.CurrentStatus, result.Data.CurrentLocation,
	)}
}
