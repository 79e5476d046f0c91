// Package shipping implements the HTTP client for the Photon shipping provider.
//
// All calls carry a bearer token; an expired token (HTTP 401) triggers one
// silent re-login and retry. Provider responses embed their own statusCode,
// which callers inspect before using the data section.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avocadolabs/photon/internal/models"
)

const (
	// DefaultBaseURL is the production provider endpoint.
	DefaultBaseURL = "https://api.shipphoton.com"
	// DefaultTimeout bounds every provider call.
	DefaultTimeout = 30 * time.Second
	// genericFailureMessage stands in for provider error bodies that carry no
	// usable message. Raw bodies are never passed through to callers.
	genericFailureMessage = "Unable to retrieve data at the moment. Please try again."
)

// providerErrorMessage extracts a short human-readable message from a non-200
// provider body, falling back to the generic failure message. Stack traces,
// trace IDs and other diagnostics stay in the debug log only.
func providerErrorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return genericFailureMessage
}

// Opts holds configuration options for the shipping client.
type Opts struct {
	BaseURL    string
	UserID     string
	Password   string
	HTTPClient *http.Client
}

// Option defines a configuration option for the shipping client.
type Option func(*Opts)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) {
		o.BaseURL = u
	}
}

// WithCredentials sets the provider login credentials.
func WithCredentials(userID, password string) Option {
	return func(o *Opts) {
		o.UserID = userID
		o.Password = password
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// Client talks to the shipping provider API.
type Client struct {
	baseURL  string
	userID   string
	password string
	http     *http.Client

	mu          sync.Mutex
	token       string
	displayName string
}

// NewClient creates a shipping client, applying any provided options.
// Credentials are required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.UserID == "" || cfg.Password == "" {
		slog.Error("Shipping client credentials not provided")
		return nil, fmt.Errorf("shipping credentials not set")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("Shipping client created", "base_url", baseURL)
	return &Client{baseURL: baseURL, userID: cfg.UserID, password: cfg.Password, http: hc}, nil
}

// doRequest performs one provider call with auth headers, refreshing the token
// and retrying exactly once on 401.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) (int, []byte, error) {
	resp, body, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return 0, nil, err
	}
	if resp == http.StatusUnauthorized {
		slog.Debug("Shipping.doRequest: token expired, refreshing", "path", path)
		if err := c.login(ctx); err != nil {
			return 0, nil, fmt.Errorf("token refresh failed: %w", err)
		}
		resp, body, err = c.send(ctx, method, path, query, payload)
		if err != nil {
			return 0, nil, err
		}
	}
	return resp, body, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload interface{}) (int, []byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Shipping.send: request failed", "method", method, "path", path, "error", err)
		return 0, nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	slog.Debug("Shipping.send: response", "method", method, "path", path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

// pincodeLookup is the provider's wire shape for pincode details.
type pincodeLookup struct {
	CityName  string `json:"cityName"`
	StateCode string `json:"stateCode"`
}

// GetPincodeDetails resolves a 6-digit pincode to its city and state.
// Returns nil (without error) when the pincode is unknown or not serviceable.
func (c *Client) GetPincodeDetails(ctx context.Context, pincode string) (*models.PincodeDetails, error) {
	q := url.Values{}
	q.Set("pincode", pincode)
	q.Set("country", "IN")

	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/Common/GetPincodeDetails", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Debug("Shipping.GetPincodeDetails: non-200", "pincode", pincode, "status", status)
		return nil, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil
	}

	// The data section is sometimes a JSON object, sometimes a JSON-encoded string.
	raw := envelope.Data
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	var lookup pincodeLookup
	if err := json.Unmarshal(raw, &lookup); err != nil {
		slog.Debug("Shipping.GetPincodeDetails: parse error", "pincode", pincode, "error", err)
		return nil, nil
	}
	if lookup.CityName == "" {
		return nil, nil
	}
	return &models.PincodeDetails{City: lookup.CityName, State: lookup.StateCode, Country: "IN"}, nil
}

// GetQuote fetches shipping options between two pincodes, enriching the result
// with the resolved from/to location details.
func (c *Client) GetQuote(ctx context.Context, fromPincode, toPincode string, weightKg, lengthCm, widthCm, heightCm float64) (*models.QuoteResult, error) {
	fromDetails, err := c.GetPincodeDetails(ctx, fromPincode)
	if err != nil {
		return nil, err
	}
	toDetails, err := c.GetPincodeDetails(ctx, toPincode)
	if err != nil {
		return nil, err
	}
	if fromDetails == nil || toDetails == nil {
		return &models.QuoteResult{StatusCode: 400, Error: "Invalid pincode or not serviceable."}, nil
	}

	payload := map[string]string{
		"shipFromPinCode": fromPincode,
		"shipFromCity":    fromDetails.City,
		"shipFromState":   fromDetails.State,
		"shipFromCountry": "IN",
		"shipToPincode":   toPincode,
		"shipToCity":      toDetails.City,
		"shipToState":     toDetails.State,
		"shipToCountry":   "IN",
		"length":          formatNumber(lengthCm),
		"width":           formatNumber(widthCm),
		"height":          formatNumber(heightCm),
		"lengthUom":       "CM",
		"weight":          formatNumber(weightKg),
		"weightUom":       "KG",
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/api/Shipping/GetQuote", nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Debug("Shipping.GetQuote: non-200", "status", status, "body", string(body))
		return &models.QuoteResult{StatusCode: status, Error: providerErrorMessage(body)}, nil
	}

	var result models.QuoteResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	result.FromDetails = fromDetails
	result.ToDetails = toDetails
	return &result, nil
}

// GetTracking looks up the current status of a shipment.
func (c *Client) GetTracking(ctx context.Context, trackingNumber string) (*models.TrackingResult, error) {
	q := url.Values{}
	q.Set("trackingNumber", trackingNumber)

	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/Shipping/GetTracking", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Debug("Shipping.GetTracking: non-200", "status", status, "body", string(body))
		return &models.TrackingResult{StatusCode: status, Error: providerErrorMessage(body)}, nil
	}

	var result models.TrackingResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}
	return &result, nil
}

// GetAllWarehouses returns the account's active ship-from addresses.
func (c *Client) GetAllWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	q := url.Values{}
	q.Set("AddressType", "ShipFrom")

	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/Common/AddressList", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Warn("Shipping.GetAllWarehouses: non-200", "status", status, "body", string(body))
		return nil, fmt.Errorf("warehouse list request returned status %d", status)
	}

	var envelope struct {
		Data []models.Warehouse `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse warehouse list: %w", err)
	}

	var active []models.Warehouse
	for _, w := range envelope.Data {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active, nil
}

// GetDefaultWarehouse returns the priority or default ship-from address,
// falling back to the first active one.
func (c *Client) GetDefaultWarehouse(ctx context.Context) (*models.Warehouse, error) {
	warehouses, err := c.GetAllWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	if len(warehouses) == 0 {
		return nil, nil
	}
	for _, w := range warehouses {
		if w.Priority || w.IsDefault {
			return &w, nil
		}
	}
	return &warehouses[0], nil
}

// GetAllShipToAddresses returns the account's saved ship-to addresses.
func (c *Client) GetAllShipToAddresses(ctx context.Context) ([]models.Address, error) {
	q := url.Values{}
	q.Set("AddressType", "ShipTo")

	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/Common/AddressList", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Warn("Shipping.GetAllShipToAddresses: non-200", "status", status, "body", string(body))
		return nil, fmt.Errorf("ship-to address list request returned status %d", status)
	}

	var envelope struct {
		Data []models.Address `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse ship-to address list: %w", err)
	}
	return envelope.Data, nil
}

// SaveNewShipToAddress registers a new ship-to address with the provider.
func (c *Client) SaveNewShipToAddress(ctx context.Context, req models.NewAddressRequest) (*models.SaveAddressResult, error) {
	payload := map[string]interface{}{
		"obj": map[string]string{
			"addressName": req.Name,
			"phone":       req.Phone,
			"email":       req.Email,
			"address1":    req.Address1,
			"address2":    req.Address2,
			"postalCode":  req.PostalCode,
			"city":        req.City,
			"state":       req.State,
			"country":     "IN",
			"addressType": "ShipTo",
		},
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/api/Common/SaveAddress", nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Debug("Shipping.SaveNewShipToAddress: non-200", "status", status, "body", string(body))
		return &models.SaveAddressResult{StatusCode: status, Error: providerErrorMessage(body)}, nil
	}

	var result models.SaveAddressResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse save address response: %w", err)
	}
	if result.StatusCode == 0 {
		result.StatusCode = status
	}
	return &result, nil
}

// CreateShipment books a shipment via QuickShip. The warehouse and ship-to
// pincodes must differ, and the destination must be serviceable.
func (c *Client) CreateShipment(ctx context.Context, req models.ShipmentRequest) (*models.ShipmentResult, error) {
	if req.Warehouse.PostalCode == "" {
		return &models.ShipmentResult{StatusCode: 400, Error: "Warehouse not selected."}, nil
	}
	if req.ShipTo.PostalCode == req.Warehouse.PostalCode {
		return &models.ShipmentResult{StatusCode: 400, Error: "Ship From and Ship To pincode cannot be same."}, nil
	}

	toDetails, err := c.GetPincodeDetails(ctx, req.ShipTo.PostalCode)
	if err != nil {
		return nil, err
	}
	if toDetails == nil {
		return &models.ShipmentResult{StatusCode: 400, Error: "Invalid destination pincode."}, nil
	}

	payload := map[string]interface{}{
		"obj": map[string]interface{}{
			"product":             req.Product,
			"carrierId":           req.CarrierID,
			"serviceId":           req.ServiceID,
			"quantity":            req.Quantity,
			"invoiceAmount":       req.InvoiceAmount,
			"shipFromAddressName": req.Warehouse.AddressName,
			"organization":        req.Warehouse.Name,
			"shipFromPincode":     req.Warehouse.PostalCode,
			"shipToAddress":       req.ShipTo.Address1,
			"shipToPincode":       req.ShipTo.PostalCode,
			"shipToCity":          toDetails.City,
			"shipToState":         toDetails.State,
			"shipToCountry":       "IN",
			"noOfBoxes":           req.NoOfBoxes,
			"weight":              req.WeightKg,
			"length":              req.LengthCm,
			"width":               req.WidthCm,
			"height":              req.HeightCm,
			"weightUom":           "KG",
			"lengthUom":           "CM",
		},
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/api/Shipping/QuickShip", nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		slog.Debug("Shipping.CreateShipment: non-200", "status", status, "body", string(body))
		return &models.ShipmentResult{StatusCode: status, Error: providerErrorMessage(body)}, nil
	}

	var result models.ShipmentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse shipment response: %w", err)
	}
	return &result, nil
}

// formatNumber renders a float without a trailing ".000000" tail.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
