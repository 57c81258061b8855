package backend

import (
	"context"
	"net/http"
)

// City is a delivery city with its delivery charge.
type City struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Charge Amount `json:"charge"`
}

// PickupCenter is a collection point shown as a pin on the map.
type PickupCenter struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   string  `json:"phone"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Address is the last delivery address used by the customer.
type Address struct {
	BuildingType string  `json:"buildingType"`
	BuildingName string  `json:"buildingName"`
	BuildingNo   string  `json:"buildingNo"`
	FlatNumber   string  `json:"flatNumber"`
	FloorNumber  string  `json:"floorNumber"`
	HouseNo      string  `json:"houseNo"`
	Street       string  `json:"street"`
	CityID       string  `json:"cityId"`
	CityName     string  `json:"cityName"`
	Landmark     string  `json:"landmark"`
	GeoLatitude  float64 `json:"geoLatitude"`
	GeoLongitude float64 `json:"geoLongitude"`
}

// ListCities returns the cities delivered to.
func (c *Client) ListCities(ctx context.Context) ([]City, error) {
	var out []City
	if err := c.do(ctx, request{endpoint: "checkout.cities", method: http.MethodGet, path: "cities", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPickupCenters returns the pickup centers.
func (c *Client) ListPickupCenters(ctx context.Context) ([]PickupCenter, error) {
	var out []PickupCenter
	if err := c.do(ctx, request{endpoint: "checkout.pickup_centers", method: http.MethodGet, path: "pickup-centers", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PreviousAddress returns the last address the customer ordered to. A
// customer without orders yields a not-found error.
func (c *Client) PreviousAddress(ctx context.Context) (*Address, error) {
	var out Address
	if err := c.do(ctx, request{endpoint: "checkout.previous_address", method: http.MethodGet, path: "checkout/previous-address", auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
