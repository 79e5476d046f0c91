package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avocadolabs/photon/internal/models"
)

// newTestServer builds a provider stub that issues tokens and dispatches the
// remaining routes to handler.
func newTestServer(t *testing.T, token string, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/Auth/GetToken" {
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("login payload decode failed: %v", err)
			}
			if payload["userId"] != "user@test" {
				t.Errorf("login userId = %v, want user@test", payload["userId"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"token": token, "name": "Acme Logistics"},
			})
			return
		}
		handler(w, r)
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(WithBaseURL(srv.URL), WithCredentials("user@test", "secret"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClientSendsBearerToken(t *testing.T) {
	srv := newTestServer(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want Bearer tok-123", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"statusCode": 200,
			"data":       map[string]string{"currentStatus": "In Transit", "currentLocation": "Delhi Hub"},
		})
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetTracking(context.Background(), "AWB1")
	if err != nil {
		t.Fatalf("GetTracking failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Data.CurrentStatus != "In Transit" {
		t.Errorf("CurrentStatus = %q", res.Data.CurrentStatus)
	}
}

func TestClientRefreshesTokenOn401(t *testing.T) {
	logins := 0
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/Auth/GetToken" {
			logins++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"token": "tok"},
			})
			return
		}
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"statusCode": 200,
			"data":       map[string]string{"currentStatus": "Delivered"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(WithBaseURL(srv.URL), WithCredentials("u", "p"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	res, err := c.GetTracking(context.Background(), "AWB2")
	if err != nil {
		t.Fatalf("GetTracking failed: %v", err)
	}
	if res.Data.CurrentStatus != "Delivered" {
		t.Errorf("CurrentStatus = %q, want Delivered", res.Data.CurrentStatus)
	}
	if calls != 2 {
		t.Errorf("provider calls = %d, want 2 (401 then retry)", calls)
	}
	if logins != 2 {
		t.Errorf("logins = %d, want 2 (initial + refresh)", logins)
	}
}

func TestGetQuoteEnrichesPincodeDetails(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Common/GetPincodeDetails":
			city := "Jaipur"
			if r.URL.Query().Get("pincode") == "110001" {
				city = "New Delhi"
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"cityName": city, "stateCode": "XX"},
			})
		case "/api/Shipping/GetQuote":
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["shipFromCity"] != "Jaipur" {
				t.Errorf("shipFromCity = %q, want Jaipur", payload["shipFromCity"])
			}
			if payload["weightUom"] != "KG" || payload["lengthUom"] != "CM" {
				t.Errorf("unexpected UOMs: %v", payload)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"statusCode": 200,
				"data": map[string]interface{}{
					"servicesOnDate": []map[string]interface{}{
						{"carrierCode": "BLUEDART", "serviceDescription": "Express", "totalCharges": 350.5},
					},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetQuote(context.Background(), "302021", "110001", 5, 10, 10, 10)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.FromDetails == nil || res.FromDetails.City != "Jaipur" {
		t.Errorf("FromDetails = %+v, want Jaipur", res.FromDetails)
	}
	if res.ToDetails == nil || res.ToDetails.City != "New Delhi" {
		t.Errorf("ToDetails = %+v, want New Delhi", res.ToDetails)
	}
	if len(res.Data.ServicesOnDate) != 1 {
		t.Fatalf("services = %d, want 1", len(res.Data.ServicesOnDate))
	}
}

func TestGetQuoteUnserviceablePincode(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/Common/GetPincodeDetails" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		t.Errorf("quote endpoint must not be called for unserviceable pincodes")
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetQuote(context.Background(), "000000", "110001", 5, 10, 10, 10)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if res.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", res.StatusCode)
	}
	if !strings.Contains(res.Error, "Invalid pincode") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestGetPincodeDetailsStringEncodedData(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		// Some provider responses double-encode the data section.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": `{"cityName":"Mumbai","stateCode":"MH"}`,
		})
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	details, err := c.GetPincodeDetails(context.Background(), "400001")
	if err != nil {
		t.Fatalf("GetPincodeDetails failed: %v", err)
	}
	if details == nil || details.City != "Mumbai" || details.State != "MH" {
		t.Errorf("details = %+v", details)
	}
}

func TestGetAllWarehousesFiltersInactive(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("AddressType"); got != "ShipFrom" {
			t.Errorf("AddressType = %q, want ShipFrom", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"addressName": "WH-A", "city": "Jaipur", "postalCode": "302021", "isActive": true},
				{"addressName": "WH-B", "city": "Pune", "postalCode": "411001", "isActive": false},
			},
		})
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	warehouses, err := c.GetAllWarehouses(context.Background())
	if err != nil {
		t.Fatalf("GetAllWarehouses failed: %v", err)
	}
	if len(warehouses) != 1 {
		t.Fatalf("warehouses = %d, want 1", len(warehouses))
	}
	if warehouses[0].AddressName != "WH-A" {
		t.Errorf("AddressName = %q, want WH-A", warehouses[0].AddressName)
	}
}

func TestGetDefaultWarehousePrefersPriority(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"addressName": "WH-A", "isActive": true},
				{"addressName": "WH-B", "isActive": true, "priority": true},
			},
		})
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	wh, err := c.GetDefaultWarehouse(context.Background())
	if err != nil {
		t.Fatalf("GetDefaultWarehouse failed: %v", err)
	}
	if wh == nil || wh.AddressName != "WH-B" {
		t.Errorf("default warehouse = %+v, want WH-B", wh)
	}
}

func TestCreateShipmentSamePincodeGuard(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider must not be called when pincodes match")
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.CreateShipment(context.Background(), models.ShipmentRequest{
		Warehouse: models.Warehouse{AddressName: "WH-A", PostalCode: "302021"},
		ShipTo:    models.Address{Address1: "1 Main St", PostalCode: "302021"},
	})
	if err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}
	if res.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", res.StatusCode)
	}
	if !strings.Contains(res.Error, "cannot be same") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestCreateShipmentWrapsPayloadInObj(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Common/GetPincodeDetails":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"cityName": "New Delhi", "stateCode": "DL"},
			})
		case "/api/Shipping/QuickShip":
			var payload map[string]json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("payload decode failed: %v", err)
			}
			obj, ok := payload["obj"]
			if !ok {
				t.Fatal("payload missing obj envelope")
			}
			var inner map[string]interface{}
			if err := json.Unmarshal(obj, &inner); err != nil {
				t.Fatalf("obj decode failed: %v", err)
			}
			if inner["shipFromAddressName"] != "WH-A" {
				t.Errorf("shipFromAddressName = %v", inner["shipFromAddressName"])
			}
			if inner["shipToCity"] != "New Delhi" {
				t.Errorf("shipToCity = %v", inner["shipToCity"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"statusCode": 200,
				"data":       map[string]string{"carrierCode": "DELHIVERY", "trackingNo": "TRK100"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.CreateShipment(context.Background(), models.ShipmentRequest{
		Product:       "Books",
		CarrierID:     "c1",
		ServiceID:     "s1",
		Quantity:      2,
		InvoiceAmount: 1200,
		Warehouse:     models.Warehouse{AddressName: "WH-A", Name: "Acme", PostalCode: "302021"},
		ShipTo:        models.Address{Address1: "1 Main St", PostalCode: "110001"},
		NoOfBoxes:     1,
		WeightKg:      5,
		LengthCm:      10,
		WidthCm:       10,
		HeightCm:      10,
	})
	if err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Data.TrackingNo != "TRK100" {
		t.Errorf("TrackingNo = %q, want TRK100", res.Data.TrackingNo)
	}
}

func TestGetQuoteNon200SanitizesBody(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Common/GetPincodeDetails":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"cityName": "Jaipur", "stateCode": "RJ"},
			})
		case "/api/Shipping/GetQuote":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"traceId":"00-deadbeef","exception":"System.NullReferenceException at Provider.Api"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetQuote(context.Background(), "302021", "110001", 5, 10, 10, 10)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if res.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", res.StatusCode)
	}
	if strings.Contains(res.Error, "NullReference") || strings.Contains(res.Error, "traceId") {
		t.Errorf("Error leaked provider diagnostics: %q", res.Error)
	}
	if res.Error != genericFailureMessage {
		t.Errorf("Error = %q, want generic failure message", res.Error)
	}
}

func TestGetQuoteNon200UsesProviderMessage(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Common/GetPincodeDetails":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"cityName": "Jaipur", "stateCode": "RJ"},
			})
		case "/api/Shipping/GetQuote":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Rate not available for this route."}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetQuote(context.Background(), "302021", "110001", 5, 10, 10, 10)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if res.Error != "Rate not available for this route." {
		t.Errorf("Error = %q, want provider message", res.Error)
	}
}

func TestGetTrackingNon200SanitizesBody(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>Bad Gateway</html>`))
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.GetTracking(context.Background(), "AWB1")
	if err != nil {
		t.Fatalf("GetTracking failed: %v", err)
	}
	if res.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", res.StatusCode)
	}
	if res.Error != genericFailureMessage {
		t.Errorf("Error = %q, want generic failure message", res.Error)
	}
}

func TestGetAllWarehousesNon200ReturnsError(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	warehouses, err := c.GetAllWarehouses(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 warehouse list")
	}
	if warehouses != nil {
		t.Errorf("warehouses = %v, want nil", warehouses)
	}
}

func TestGetAllShipToAddressesNon200ReturnsError(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer srv.Close()

	c := newTestClient(t, srv)
	addresses, err := c.GetAllShipToAddresses(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 ship-to address list")
	}
	if addresses != nil {
		t.Errorf("addresses = %v, want nil", addresses)
	}
}

func TestDisplayNameFromLogin(t *testing.T) {
	srv := newTestServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {})
	defer srv.Close()

	c := newTestClient(t, srv)
	if got := c.DisplayName(context.Background()); got != "Acme Logistics" {
		t.Errorf("DisplayName = %q, want Acme Logistics", got)
	}
}
