// Package flow implements the shipping assistant's dialogue engine.
//
// This file routes each turn: cancel and greeting short-circuits, the quote
// and tracking flows, the multi-step shipment flow with its numbered menus,
// and finally the LLM fallback for anything else.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/avocadolabs/photon/internal/genai"
	"github.com/avocadolabs/photon/internal/models"
)

// ShippingService is the provider surface the engine depends on.
type ShippingService interface {
	GetQuote(ctx context.Context, fromPincode, toPincode string, weightKg, lengthCm, widthCm, heightCm float64) (*models.QuoteResult, error)
	GetTracking(ctx context.Context, trackingNumber string) (*models.TrackingResult, error)
	CreateShipment(ctx context.Context, req models.ShipmentRequest) (*models.ShipmentResult, error)
	GetAllWarehouses(ctx context.Context) ([]models.Warehouse, error)
	GetAllShipToAddresses(ctx context.Context) ([]models.Address, error)
	SaveNewShipToAddress(ctx context.Context, req models.NewAddressRequest) (*models.SaveAddressResult, error)
	GetPincodeDetails(ctx context.Context, pincode string) (*models.PincodeDetails, error)
	DisplayName(ctx context.Context) string
}

const (
	quoteFieldsPrompt = "📦 Please provide:\nFrom Pincode\nTo Pincode\nWeight (kg)\nDimensions (L W H)"
	staleListPrompt   = "That list is no longer active. Please choose from the latest options."
	// addNewAddressValue is the reserved menu value that opens the new-address form.
	addNewAddressValue = "add_new"
)

// Engine is the dialogue engine. It is stateless; conversation state is
// passed in explicitly per turn.
type Engine struct {
	shipping ShippingService
	genai    genai.ClientInterface
}

// NewEngine creates a dialogue engine over the given collaborators.
func NewEngine(shippingSvc ShippingService, genaiClient genai.ClientInterface) *Engine {
	return &Engine{shipping: shippingSvc, genai: genaiClient}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// selectIndex resolves a 1-based menu selection against a list, enforcing the
// stale-list guard and bounds. invalidPrompt is the flow-specific message for
// an out-of-range pick.
func selectIndex(s *ConversationState, input string, listGen, listLen int, invalidPrompt string) (int, error) {
	if listGen != s.DisplayedGen {
		return 0, &SelectionError{Prompt: staleListPrompt}
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, &SelectionError{Prompt: invalidPrompt}
	}
	idx := n - 1
	if idx < 0 || idx >= listLen {
		return 0, &SelectionError{Prompt: invalidPrompt}
	}
	return idx, nil
}

// HandleTurn processes one user message against the session's state and
// returns the reply. A non-nil error is an internal failure; the API boundary
// renders it as a generic message without resetting state.
func (e *Engine) HandleTurn(ctx context.Context, s *ConversationState, userMessage string) (*models.ChatResponse, error) {
	raw := strings.TrimSpace(userMessage)
	msg := strings.ToLower(raw)
	slog.Debug("Engine.HandleTurn: turn start", "mode", s.Mode, "length", len(raw))

	// Cancel wins over everything.
	switch msg {
	case "cancel", "reset", "start over":
		s.Reset()
		return &models.ChatResponse{Response: "Conversation reset successfully."}, nil
	}

	// Greetings reset and restart the conversation.
	switch msg {
	case "hi", "hello", "hey", "hii":
		s.Reset()
		name := e.shipping.DisplayName(ctx)
		if name == "" {
			name = "there"
		}
		return &models.ChatResponse{Response: fmt.Sprintf("Hi %s 👋\nI can help you with shipping quotes and shipment tracking.", name)}, nil
	}

	// Tracking flow.
	if strings.Contains(msg, "track") {
		s.Reset()
		s.Mode = ModeTracking
		return &models.ChatResponse{Response: "Please provide tracking number."}, nil
	}
	if s.Mode == ModeTracking {
		resp, err := e.completeTracking(ctx, s, raw)
		if err != nil {
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		return resp, nil
	}

	// Quote flow.
	if strings.Contains(msg, "quote") {
		s.Reset()
		s.Mode = ModeQuote
		return &models.ChatResponse{Response: quoteFieldsPrompt}, nil
	}
	if s.Mode == ModeQuote {
		return e.handleQuoteTurn(ctx, s, raw)
	}

	// Shipment flow entry.
	if strings.Contains(msg, "shipping") || strings.Contains(msg, "create shipment") {
		return e.startShippingFlow(ctx, s)
	}
	if s.Mode == ModeShipping {
		if resp, err := e.handleShippingTurn(ctx, s, raw, msg); resp != nil || err != nil {
			return resp, err
		}
	}

	return e.handleFallback(ctx, s, raw)
}

// handleQuoteTurn merges extracted fields, prompts for what is still missing,
// and completes the quote once everything is present.
func (e *Engine) handleQuoteTurn(ctx context.Context, s *ConversationState, raw string) (*models.ChatResponse, error) {
	ExtractQuoteFields(s, raw)

	if missing := missingQuoteSlots(s); len(missing) > 0 {
		return &models.ChatResponse{Response: fmt.Sprintf("Please provide: %s", strings.Join(missing, ", "))}, nil
	}
	if !models.ValidPincode(s.FromPincode) {
		return &models.ChatResponse{Response: "From pincode must be 6 digits."}, nil
	}
	if !models.ValidPincode(s.ToPincode) {
		return &models.ChatResponse{Response: "To pincode must be 6 digits."}, nil
	}

	resp, _, err := e.completeQuote(ctx, s, s.FromPincode, s.ToPincode, true)
	if err != nil {
		return &models.ChatResponse{Response: retryMessage}, nil
	}
	return resp, nil
}

// startShippingFlow resets into shipment mode and displays the warehouse menu.
func (e *Engine) startShippingFlow(ctx context.Context, s *ConversationState) (*models.ChatResponse, error) {
	s.Reset()
	s.Mode = ModeShipping

	warehouses, err := e.shipping.GetAllWarehouses(ctx)
	if err != nil {
		slog.Error("Engine.startShippingFlow: warehouse load failed", "error", err)
		s.Reset()
		return &models.ChatResponse{Response: retryMessage}, nil
	}
	if len(warehouses) == 0 {
		s.Reset()
		return &models.ChatResponse{Response: "No warehouse found."}, nil
	}

	s.SetWarehouseList(warehouses)
	options := make([]models.ChatOption, 0, len(warehouses))
	for i, w := range warehouses {
		options = append(options, models.ChatOption{
			Label: fmt.Sprintf("%s (%s)", w.AddressName, w.City),
			Value: strconv.Itoa(i + 1),
		})
	}
	return &models.ChatResponse{Response: "🏬 Select Warehouse:", Options: options}, nil
}

// handleShippingTurn advances the multi-step shipment flow. A nil response
// with nil error means the message did not fit any step and falls through to
// the LLM fallback.
func (e *Engine) handleShippingTurn(ctx context.Context, s *ConversationState, raw, msg string) (*models.ChatResponse, error) {
	// Warehouse selection.
	if s.Warehouse == nil {
		if !isDigits(raw) {
			return nil, nil
		}
		idx, err := selectIndex(s, raw, s.WarehouseListGen, len(s.AvailableWarehouses), "Invalid warehouse selection.")
		if err != nil {
			return &models.ChatResponse{Response: err.Error()}, nil
		}
		warehouse := s.AvailableWarehouses[idx]

		addresses, loadErr := e.shipping.GetAllShipToAddresses(ctx)
		if loadErr != nil {
			slog.Error("Engine.handleShippingTurn: ship-to load failed", "error", loadErr)
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		s.Warehouse = &warehouse
		if len(addresses) == 0 {
			return &models.ChatResponse{Response: "No ShipTo addresses found."}, nil
		}
		s.SetShipToList(addresses)

		options := make([]models.ChatOption, 0, len(addresses)+1)
		for i, a := range addresses {
			options = append(options, models.ChatOption{
				Label: fmt.Sprintf("%s (%s)", a.AddressName, a.PostalCode),
				Value: strconv.Itoa(i + 1),
			})
		}
		options = append(options, models.ChatOption{Label: "➕ Add New Address", Value: addNewAddressValue})
		return &models.ChatResponse{Response: "🏠 Select ShipTo Address:", Options: options}, nil
	}

	// New-address sub-flow takes precedence once opened.
	if s.NewAddressMode {
		return e.handleNewAddressTurn(ctx, s, raw)
	}

	// Ship-to selection.
	if s.ShipTo == nil {
		if raw == addNewAddressValue {
			s.NewAddressMode = true
			return &models.ChatResponse{Response: "Enter Name:"}, nil
		}
		if isDigits(raw) {
			idx, err := selectIndex(s, raw, s.ShipToListGen, len(s.AvailableShipTo), "Invalid ShipTo selection.")
			if err != nil {
				return &models.ChatResponse{Response: err.Error()}, nil
			}
			shipTo := s.AvailableShipTo[idx]
			s.ShipTo = &shipTo
			return &models.ChatResponse{Response: "Enter Product Name:"}, nil
		}
		return nil, nil
	}

	// Shipment detail collection, one slot per turn.
	if s.Product == "" {
		s.Product = raw
		return &models.ChatResponse{Response: "Enter Quantity:"}, nil
	}
	if s.Quantity == nil {
		qty := stripNonDigits(raw)
		if qty == "" {
			return &models.ChatResponse{Response: "Quantity must be numeric."}, nil
		}
		n, err := strconv.Atoi(qty)
		if err != nil || n <= 0 {
			return &models.ChatResponse{Response: "Quantity must be numeric."}, nil
		}
		s.Quantity = intPtr(n)
		return &models.ChatResponse{Response: "Enter Invoice Amount:"}, nil
	}
	if s.InvoiceAmount == nil {
		amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || amount <= 0 {
			return &models.ChatResponse{Response: "Invoice amount must be numeric."}, nil
		}
		s.InvoiceAmount = floatPtr(amount)
		return &models.ChatResponse{Response: "Enter Number of Boxes:"}, nil
	}
	if s.NoOfBoxes == nil {
		boxes := stripNonDigits(raw)
		if boxes == "" {
			return &models.ChatResponse{Response: "Number of boxes must be numeric."}, nil
		}
		n, err := strconv.Atoi(boxes)
		if err != nil || n <= 0 {
			return &models.ChatResponse{Response: "Number of boxes must be numeric."}, nil
		}
		s.NoOfBoxes = intPtr(n)
		return &models.ChatResponse{Response: "Enter Dimensions (L W H):"}, nil
	}
	if s.LengthCm == nil {
		nums := numberTokenRe.FindAllString(raw, -1)
		if len(nums) != 3 {
			return &models.ChatResponse{Response: "Enter 3 numbers like: 10 10 10"}, nil
		}
		setDimensions(s, nums[0], nums[1], nums[2])
		if s.LengthCm == nil {
			return &models.ChatResponse{Response: "Enter 3 numbers like: 10 10 10"}, nil
		}
		return &models.ChatResponse{Response: "Enter Weight (kg):"}, nil
	}
	if s.WeightKg == nil {
		weight, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || weight <= 0 {
			return &models.ChatResponse{Response: "Weight must be numeric."}, nil
		}
		s.WeightKg = floatPtr(weight)

		// Completing the weight triggers the mid-shipment quote that seeds
		// the service menu. Not terminal: the flow continues to selection.
		// A failed quote rewinds to the weight step so the flow can retry.
		resp, ok, quoteErr := e.completeQuote(ctx, s, s.Warehouse.PostalCode, s.ShipTo.PostalCode, false)
		if quoteErr != nil {
			s.WeightKg = nil
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		if !ok {
			s.WeightKg = nil
		}
		return resp, nil
	}

	// Service selection.
	if len(s.AvailableServices) > 0 && s.Service == nil && isDigits(raw) {
		idx, err := selectIndex(s, raw, s.ServiceListGen, len(s.AvailableServices), "Invalid selection.")
		if err != nil {
			return &models.ChatResponse{Response: err.Error()}, nil
		}
		svc := s.AvailableServices[idx]
		s.Service = &SelectedService{
			CarrierID:   svc.CarrierID,
			ServiceID:   svc.ServiceID,
			CarrierCode: svc.CarrierCode,
			ServiceCode: svc.ServiceCode,
			CarrierType: svc.CarrierType,
		}
		s.AwaitingConfirmation = true
		return &models.ChatResponse{Response: "Confirm shipment? (yes / no)"}, nil
	}

	// Confirmation.
	if s.AwaitingConfirmation {
		if msg != "yes" {
			s.Reset()
			return &models.ChatResponse{Response: "Shipment cancelled."}, nil
		}
		if s.Service == nil || s.Service.CarrierType == "" {
			return &models.ChatResponse{Response: "Carrier type missing. Please reselect service."}, nil
		}

		req := models.ShipmentRequest{
			Product:       s.Product,
			CarrierID:     s.Service.CarrierCode,
			ServiceID:     s.Service.ServiceCode,
			Quantity:      *s.Quantity,
			InvoiceAmount: *s.InvoiceAmount,
			Warehouse:     *s.Warehouse,
			ShipTo:        *s.ShipTo,
			NoOfBoxes:     *s.NoOfBoxes,
			WeightKg:      *s.WeightKg,
			LengthCm:      *s.LengthCm,
			WidthCm:       *s.WidthCm,
			HeightCm:      *s.HeightCm,
		}
		result, err := e.shipping.CreateShipment(ctx, req)
		if err != nil {
			slog.Error("Engine.handleShippingTurn: shipment creation failed", "error", err)
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		resp := FormatShipment(result)
		s.Reset()
		return resp, nil
	}

	return nil, nil
}

// handleNewAddressTurn collects the new ship-to address one field per turn,
// saves it, and selects it for the shipment in progress.
func (e *Engine) handleNewAddressTurn(ctx context.Context, s *ConversationState, raw string) (*models.ChatResponse, error) {
	form := &s.NewAddress

	if form.Name == "" {
		form.Name = raw
		return &models.ChatResponse{Response: "Enter Phone:"}, nil
	}
	if form.Phone == "" {
		phone := stripNonDigits(raw)
		if len(phone) != 10 {
			return &models.ChatResponse{Response: "Phone must be 10 digits."}, nil
		}
		form.Phone = phone
		return &models.ChatResponse{Response: "Enter Email:"}, nil
	}
	if form.Email == "" {
		form.Email = raw
		return &models.ChatResponse{Response: "Enter Address Line 1:"}, nil
	}
	if form.Address1 == "" {
		form.Address1 = raw
		return &models.ChatResponse{Response: "Enter Postal Code:"}, nil
	}
	if form.PostalCode == "" {
		postal := stripNonDigits(raw)
		if !models.ValidPincode(postal) {
			return &models.ChatResponse{Response: "Postal code must be 6 digits."}, nil
		}

		details, err := e.shipping.GetPincodeDetails(ctx, postal)
		if err != nil {
			slog.Error("Engine.handleNewAddressTurn: pincode lookup failed", "error", err)
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		if details == nil {
			return &models.ChatResponse{Response: "Invalid pincode."}, nil
		}

		saveReq := models.NewAddressRequest{
			Name:       form.Name,
			Phone:      form.Phone,
			Email:      form.Email,
			Address1:   form.Address1,
			PostalCode: postal,
			City:       details.City,
			State:      details.State,
		}
		result, err := e.shipping.SaveNewShipToAddress(ctx, saveReq)
		if err != nil {
			slog.Error("Engine.handleNewAddressTurn: save failed", "error", err)
			return &models.ChatResponse{Response: retryMessage}, nil
		}
		if result.StatusCode != 200 {
			slog.Warn("Engine.handleNewAddressTurn: save rejected", "status", result.StatusCode)
			return &models.ChatResponse{Response: "Failed to save address."}, nil
		}

		form.PostalCode = postal
		form.City = details.City
		form.State = details.State
		s.NewAddressMode = false

		// Select the freshly saved address; fall back to the form contents if
		// the refetch does not surface it.
		saved := models.Address{
			AddressName: form.Name,
			Phone:       form.Phone,
			Email:       form.Email,
			Address1:    form.Address1,
			City:        form.City,
			State:       form.State,
			PostalCode:  form.PostalCode,
		}
		if addresses, err := e.shipping.GetAllShipToAddresses(ctx); err == nil && len(addresses) > 0 {
			saved = addresses[len(addresses)-1]
		}
		s.ShipTo = &saved

		return &models.ChatResponse{Response: "Address saved. Enter Product Name:"}, nil
	}

	return nil, nil
}

// stripNonDigits removes everything but 0-9 from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
