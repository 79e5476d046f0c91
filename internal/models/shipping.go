// Package models defines shipping-provider payload structures.
package models

import "time"

// PincodeDetails is the resolved location for a 6-digit pincode.
type PincodeDetails struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Service is one courier service offered in a quote.
type Service struct {
	CarrierID             string  `json:"carrierId"`
	ServiceID             string  `json:"serviceId"`
	CarrierCode           string  `json:"carrierCode"`
	ServiceCode           string  `json:"serviceCode"`
	CarrierType           string  `json:"carrierType"`
	ServiceDescription    string  `json:"serviceDescription"`
	TotalCharges          float64 `json:"totalCharges"`
	ArrivalDate           string  `json:"arrivalDate"`
	BusinessDaysInTransit string  `json:"businessDaysInTransit"`
}

// QuoteData is the data section of a quote response.
type QuoteData struct {
	ServicesOnDate []Service `json:"servicesOnDate"`
}

// QuoteResult is the provider response for a quote request, enriched with the
// resolved from/to pincode details.
type QuoteResult struct {
	StatusCode  int             `json:"statusCode"`
	Error       string          `json:"error,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        QuoteData       `json:"data"`
	FromDetails *PincodeDetails `json:"from_details,omitempty"`
	ToDetails   *PincodeDetails `json:"to_details,omitempty"`
}

// TrackingData is the data section of a tracking response.
type TrackingData struct {
	CurrentStatus   string `json:"currentStatus"`
	CurrentLocation string `json:"currentLocation"`
}

// TrackingResult is the provider response for a tracking request.
type TrackingResult struct {
	StatusCode int          `json:"statusCode"`
	Error      string       `json:"error,omitempty"`
	Message    string       `json:"message,omitempty"`
	Data       TrackingData `json:"data"`
}

// ShipmentData is the data section of a shipment-creation response.
type ShipmentData struct {
	CarrierCode    string `json:"carrierCode"`
	TrackingNo     string `json:"trackingNo"`
	TrackingNumber string `json:"trackingNumber"`
	AWBNumber      string `json:"awbNumber"`
}

// ShipmentResult is the provider response for shipment creation.
type ShipmentResult struct {
	StatusCode int          `json:"statusCode"`
	Error      string       `json:"error,omitempty"`
	Message    string       `json:"message,omitempty"`
	Data       ShipmentData `json:"data"`
}

// Warehouse is a ship-from address registered with the provider.
type Warehouse struct {
	AddressName string `json:"addressName"`
	Name        string `json:"name"` // organization name
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	IsActive    bool   `json:"isActive"`
	IsDefault   bool   `json:"isDefault"`
	Priority    bool   `json:"priority"`
}

// Address is a ship-to address registered with the provider.
type Address struct {
	AddressName string `json:"addressName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
}

// NewAddressRequest carries the fields collected by the add-new-address flow.
type NewAddressRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// SaveAddressResult is the provider response for saving a new ship-to address.
type SaveAddressResult struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ShipmentRequest carries everything needed for a QuickShip call.
type ShipmentRequest struct {
	Product       string  `json:"product"`
	CarrierID     string  `json:"carrierId"`
	ServiceID     string  `json:"serviceId"`
	Quantity      int     `json:"quantity"`
	InvoiceAmount float64 `json:"invoiceAmount"`
	Warehouse     Warehouse
	ShipTo        Address
	NoOfBoxes     int     `json:"noOfBoxes"`
	WeightKg      float64 `json:"weight"`
	LengthCm      float64 `json:"length"`
	WidthCm       float64 `json:"width"`
	HeightCm      float64 `json:"height"`
}

// SessionRecord is a persisted snapshot of one session's conversation state.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	StateJSON string    `json:"state_json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
