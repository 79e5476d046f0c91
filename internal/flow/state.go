// Package flow implements the shipping assistant's dialogue engine.
//
// This file defines the per-session conversation state.
package flow

import (
	"github.com/avocadolabs/photon/internal/models"
)

// Mode identifies the active conversation flow. At most one is active; any
// mode switch resets the previous mode's slots.
type Mode string

const (
	ModeNone     Mode = ""
	ModeQuote    Mode = "quote"
	ModeTracking Mode = "tracking"
	ModeShipping Mode = "shipping"
)

// SelectedService captures the courier service chosen from a quote. The
// provider's booking API takes the carrier/service codes; the GUIDs are kept
// for reference.
type SelectedService struct {
	CarrierID   string `json:"carrier_id"`
	ServiceID   string `json:"service_id"`
	CarrierCode string `json:"carrier_code"`
	ServiceCode string `json:"service_code"`
	CarrierType string `json:"carrier_type"`
}

// NewAddressForm collects the add-new-address sub-flow, one field per turn.
type NewAddressForm struct {
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address1   string `json:"address1,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

// ConversationState is one session's dialogue state. It is JSON-serializable
// so the session manager can write it through to the configured store.
//
// Every displayed selection list carries a generation tag; numeric selections
// are only honored against the generation currently displayed, so input aimed
// at a list that has since been replaced fails instead of silently selecting
// the wrong entry.
type ConversationState struct {
	Mode Mode `json:"mode"`

	// Quote slots. Pincodes stay strings; numerics are set only after validation.
	FromPincode string   `json:"from_pincode,omitempty"`
	ToPincode   string   `json:"to_pincode,omitempty"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	LengthCm    *float64 `json:"length_cm,omitempty"`
	WidthCm     *float64 `json:"width_cm,omitempty"`
	HeightCm    *float64 `json:"height_cm,omitempty"`

	// Generation is the monotonically increasing counter behind list tags.
	// DisplayedGen is the tag of the list currently shown to the user.
	Generation   int `json:"generation"`
	DisplayedGen int `json:"displayed_gen,omitempty"`

	AvailableWarehouses []models.Warehouse `json:"available_warehouses,omitempty"`
	WarehouseListGen    int                `json:"warehouse_list_gen,omitempty"`
	Warehouse           *models.Warehouse  `json:"warehouse,omitempty"`

	AvailableShipTo []models.Address `json:"available_shipto,omitempty"`
	ShipToListGen   int              `json:"shipto_list_gen,omitempty"`
	ShipTo          *models.Address  `json:"shipto,omitempty"`

	AvailableServices []models.Service `json:"available_services,omitempty"`
	ServiceListGen    int              `json:"service_list_gen,omitempty"`
	Service           *SelectedService `json:"service,omitempty"`

	// Shipment slots.
	Product       string   `json:"product,omitempty"`
	Quantity      *int     `json:"quantity,omitempty"`
	InvoiceAmount *float64 `json:"invoice_amount,omitempty"`
	NoOfBoxes     *int     `json:"no_of_boxes,omitempty"`

	AwaitingConfirmation bool `json:"awaiting_confirmation,omitempty"`

	NewAddressMode bool           `json:"new_address_mode,omitempty"`
	NewAddress     NewAddressForm `json:"new_address,omitempty"`
}

// NewConversationState returns a state in the default shape.
func NewConversationState() *ConversationState {
	return &ConversationState{}
}

// Reset returns the state to the default shape: empty slots, empty lists, all
// flags false, no mode. The generation counter survives so selections aimed
// at pre-reset lists stay invalid.
func (s *ConversationState) Reset() {
	gen := s.Generation
	*s = ConversationState{Generation: gen}
}

// nextGeneration advances the list generation counter and returns the new tag.
func (s *ConversationState) nextGeneration() int {
	s.Generation++
	return s.Generation
}

// SetWarehouseList installs a freshly loaded warehouse list as the displayed one.
func (s *ConversationState) SetWarehouseList(warehouses []models.Warehouse) {
	s.AvailableWarehouses = warehouses
	s.WarehouseListGen = s.nextGeneration()
	s.DisplayedGen = s.WarehouseListGen
}

// SetShipToList installs a freshly loaded ship-to list as the displayed one.
func (s *ConversationState) SetShipToList(addresses []models.Address) {
	s.AvailableShipTo = addresses
	s.ShipToListGen = s.nextGeneration()
	s.DisplayedGen = s.ShipToListGen
}

// SetServiceList installs a freshly quoted service list as the displayed one.
func (s *ConversationState) SetServiceList(services []models.Service) {
	s.AvailableServices = services
	s.ServiceListGen = s.nextGeneration()
	s.DisplayedGen = s.ServiceListGen
}

// QuoteFieldsComplete reports whether all six quote slots are filled.
func (s *ConversationState) QuoteFieldsComplete() bool {
	return len(missingQuoteSlots(s)) == 0
}
