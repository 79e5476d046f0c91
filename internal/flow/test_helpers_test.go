package flow

import (
	"context"

	"github.com/avocadolabs/photon/internal/genai"
	"github.com/avocadolabs/photon/internal/models"
	"github.com/openai/openai-go"
)

// mockShipping implements ShippingService for testing.
type mockShipping struct {
	quoteResult  *models.QuoteResult
	quoteErr     error
	quoteCalls   int
	lastFrom     string
	lastTo       string
	lastWeight   float64
	lastLength   float64
	lastWidth    float64
	lastHeight   float64
	tracking     *models.TrackingResult
	trackingErr  error
	lastTracking string
	shipment     *models.ShipmentResult
	shipmentErr  error
	lastShipment models.ShipmentRequest
	warehouses   []models.Warehouse
	warehouseErr error
	shipTo       []models.Address
	shipToErr    error
	saveResult   *models.SaveAddressResult
	saveErr      error
	lastSaved    models.NewAddressRequest
	pincodes     map[string]*models.PincodeDetails
	displayName  string
}

func (m *mockShipping) GetQuote(ctx context.Context, from, to string, weight, length, width, height float64) (*models.QuoteResult, error) {
	m.quoteCalls++
	m.lastFrom, m.lastTo = from, to
	m.lastWeight, m.lastLength, m.lastWidth, m.lastHeight = weight, length, width, height
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return m.quoteResult, nil
}

func (m *mockShipping) GetTracking(ctx context.Context, trackingNumber string) (*models.TrackingResult, error) {
	m.lastTracking = trackingNumber
	if m.trackingErr != nil {
		return nil, m.trackingErr
	}
	return m.tracking, nil
}

func (m *mockShipping) CreateShipment(ctx context.Context, req models.ShipmentRequest) (*models.ShipmentResult, error) {
	m.lastShipment = req
	if m.shipmentErr != nil {
		return nil, m.shipmentErr
	}
	return m.shipment, nil
}

func (m *mockShipping) GetAllWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return m.warehouses, m.warehouseErr
}

func (m *mockShipping) GetAllShipToAddresses(ctx context.Context) ([]models.Address, error) {
	return m.shipTo, m.shipToErr
}

func (m *mockShipping) SaveNewShipToAddress(ctx context.Context, req models.NewAddressRequest) (*models.SaveAddressResult, error) {
	m.lastSaved = req
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return m.saveResult, nil
}

func (m *mockShipping) GetPincodeDetails(ctx context.Context, pincode string) (*models.PincodeDetails, error) {
	return m.pincodes[pincode], nil
}

func (m *mockShipping) DisplayName(ctx context.Context) string {
	return m.displayName
}

// mockGenAI implements genai.ClientInterface for testing.
type mockGenAI struct {
	resp  *genai.ToolCallResponse
	err   error
	calls int
}

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.resp.Content, nil
}

func (m *mockGenAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// happyQuoteResult builds a successful two-service quote.
func happyQuoteResult() *models.QuoteResult {
	return &models.QuoteResult{
		StatusCode: 200,
		Data: models.QuoteData{ServicesOnDate: []models.Service{
			{
				CarrierID: "guid-c1", ServiceID: "guid-s1",
				CarrierCode: "BLUEDART", ServiceCode: "EXP", CarrierType: "express",
				ServiceDescription: "Express Air", TotalCharges: 350.5,
				ArrivalDate: "2026-09-02", BusinessDaysInTransit: "2",
			},
			{
				CarrierID: "guid-c2", ServiceID: "guid-s2",
				CarrierCode: "DELHIVERY", ServiceCode: "SFC", CarrierType: "surface",
				ServiceDescription: "Surface", TotalCharges: 180,
				ArrivalDate: "2026-09-05", BusinessDaysInTransit: "5",
			},
		}},
		FromDetails: &models.PincodeDetails{City: "Jaipur", State: "RJ", Country: "IN"},
		ToDetails:   &models.PincodeDetails{City: "New Delhi", State: "DL", Country: "IN"},
	}
}

// newTestEngine wires an engine over fresh mocks with sensible defaults.
func newTestEngine() (*Engine, *mockShipping, *mockGenAI) {
	shippingMock := &mockShipping{
		quoteResult: happyQuoteResult(),
		tracking: &models.TrackingResult{
			StatusCode: 200,
			Data:       models.TrackingData{CurrentStatus: "In Transit", CurrentLocation: "Delhi Hub"},
		},
		shipment: &models.ShipmentResult{
			StatusCode: 200,
			Data:       models.ShipmentData{CarrierCode: "BLUEDART", TrackingNo: "TRK100", AWBNumber: "AWB100"},
		},
		warehouses: []models.Warehouse{
			{AddressName: "WH-A", Name: "Acme", City: "Jaipur", PostalCode: "302021", IsActive: true},
			{AddressName: "WH-B", Name: "Acme", City: "Pune", PostalCode: "411001", IsActive: true},
			{AddressName: "WH-C", Name: "Acme", City: "Mumbai", PostalCode: "400001", IsActive: true},
		},
		shipTo: []models.Address{
			{AddressName: "Office", Address1: "1 Main St", PostalCode: "110001"},
			{AddressName: "Depot", Address1: "2 Side St", PostalCode: "560001"},
		},
		saveResult: &models.SaveAddressResult{StatusCode: 200},
		pincodes: map[string]*models.PincodeDetails{
			"302021": {City: "Jaipur", State: "RJ", Country: "IN"},
			"110001": {City: "New Delhi", State: "DL", Country: "IN"},
		},
		displayName: "Acme Logistics",
	}
	genaiMock := &mockGenAI{resp: &genai.ToolCallResponse{Content: "I can only assist with shipping quotes and shipment tracking."}}
	return NewEngine(shippingMock, genaiMock), shippingMock, genaiMock
}
