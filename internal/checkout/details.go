package checkout

import (
	"strings"

	"github.com/agroworld/storefront/pkg/enums"
)

// Details is the checkout form draft. It lives in session state until the
// order is submitted.
type Details struct {
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	Title          string               `json:"title"`
	FullName       string               `json:"full_name"`
	PhoneCode1     string               `json:"phone_code1"`
	Phone1         string               `json:"phone1"`
	PhoneCode2     string               `json:"phone_code2"`
	Phone2         string               `json:"phone2"`
	DeliveryDate   string               `json:"delivery_date"`
	TimeSlot       string               `json:"time_slot"`
	CenterID       string               `json:"center_id"`
	BuildingType   enums.BuildingType   `json:"building_type"`
	BuildingName   string               `json:"building_name"`
	BuildingNo     string               `json:"building_no"`
	FlatNumber     string               `json:"flat_number"`
	FloorNumber    string               `json:"floor_number"`
	HouseNo        string               `json:"house_no"`
	Street         string               `json:"street"`
	CityID         string               `json:"city_id"`
	CityName       string               `json:"city_name"`
	GeoLatitude    *float64             `json:"geo_latitude"`
	GeoLongitude   *float64             `json:"geo_longitude"`
	Landmark       string               `json:"landmark"`
	Notes          string               `json:"notes"`
}

// Field names as reported in validation errors.
const (
	FieldDeliveryMethod = "delivery_method"
	FieldTitle          = "title"
	FieldFullName       = "full_name"
	FieldPhone1         = "phone1"
	FieldPhone2         = "phone2"
	FieldDeliveryDate   = "delivery_date"
	FieldTimeSlot       = "time_slot"
	FieldCenterID       = "center_id"
	FieldBuildingType   = "building_type"
	FieldBuildingName   = "building_name"
	FieldBuildingNo     = "building_no"
	FieldFlatNumber     = "flat_number"
	FieldFloorNumber    = "floor_number"
	FieldHouseNo        = "house_no"
	FieldStreet         = "street"
	FieldCityName       = "city_name"
	FieldGeoLatitude    = "geo_latitude"
	FieldGeoLongitude   = "geo_longitude"
)

var (
	alwaysRequired    = []string{FieldTitle, FieldFullName, FieldPhone1, FieldDeliveryDate, FieldTimeSlot}
	pickupRequired    = []string{FieldCenterID}
	homeRequired      = []string{FieldBuildingType, FieldHouseNo, FieldStreet, FieldCityName, FieldGeoLatitude, FieldGeoLongitude}
	apartmentRequired = []string{FieldBuildingName, FieldBuildingNo, FieldFlatNumber, FieldFloorNumber}
)

// Normalize trims surrounding whitespace from every text field.
func (d Details) Normalize() Details {
	d.Title = strings.TrimSpace(d.Title)
	d.FullName = strings.TrimSpace(d.FullName)
	d.PhoneCode1 = strings.TrimSpace(d.PhoneCode1)
	d.Phone1 = strings.TrimSpace(d.Phone1)
	d.PhoneCode2 = strings.TrimSpace(d.PhoneCode2)
	d.Phone2 = strings.TrimSpace(d.Phone2)
	d.DeliveryDate = strings.TrimSpace(d.DeliveryDate)
	d.TimeSlot = strings.TrimSpace(d.TimeSlot)
	d.CenterID = strings.TrimSpace(d.CenterID)
	d.BuildingName = strings.TrimSpace(d.BuildingName)
	d.BuildingNo = strings.TrimSpace(d.BuildingNo)
	d.FlatNumber = strings.TrimSpace(d.FlatNumber)
	d.FloorNumber = strings.TrimSpace(d.FloorNumber)
	d.HouseNo = strings.TrimSpace(d.HouseNo)
	d.Street = strings.TrimSpace(d.Street)
	d.CityID = strings.TrimSpace(d.CityID)
	d.CityName = strings.TrimSpace(d.CityName)
	d.Landmark = strings.TrimSpace(d.Landmark)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

// ApplicableFields lists the required fields for the draft's delivery method
// and building type, in form order.
func (d Details) ApplicableFields() []string {
	fields := append([]string{}, alwaysRequired...)
	switch d.DeliveryMethod {
	case enums.DeliveryMethodPickup:
		fields = append(fields, pickupRequired...)
	case enums.DeliveryMethodHome:
		fields = append(fields, homeRequired...)
		if d.BuildingType == enums.BuildingTypeApartment {
			fields = append(fields, apartmentRequired...)
		}
	}
	return fields
}

func (d Details) present(field string) bool {
	switch field {
	case FieldGeoLatitude:
		return d.GeoLatitude != nil
	case FieldGeoLongitude:
		return d.GeoLongitude != nil
	case FieldBuildingType:
		return d.BuildingType != ""
	}
	return d.text(field) != ""
}

func (d Details) text(field string) string {
	switch field {
	case FieldTitle:
		return d.Title
	case FieldFullName:
		return d.FullName
	case FieldPhone1:
		return d.Phone1
	case FieldDeliveryDate:
		return d.DeliveryDate
	case FieldTimeSlot:
		return d.TimeSlot
	case FieldCenterID:
		return d.CenterID
	case FieldBuildingName:
		return d.BuildingName
	case FieldBuildingNo:
		return d.BuildingNo
	case FieldFlatNumber:
		return d.FlatNumber
	case FieldFloorNumber:
		return d.FloorNumber
	case FieldHouseNo:
		return d.HouseNo
	case FieldStreet:
		return d.Street
	case FieldCityName:
		return d.CityName
	}
	return ""
}
