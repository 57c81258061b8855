package enums

import "fmt"

// BuildingType drives which address fields are required for home delivery.
type BuildingType string

const (
	BuildingTypeHouse     BuildingType = "House"
	BuildingTypeApartment BuildingType = "Apartment"
	BuildingTypeOffice    BuildingType = "Office"
)

var validBuildingTypes = []BuildingType{
	BuildingTypeHouse,
	BuildingTypeApartment,
	BuildingTypeOffice,
}

// String implements fmt.Stringer.
func (v BuildingType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known BuildingType.
func (v BuildingType) IsValid() bool {
	for _, candidate := range validBuildingTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseBuildingType converts raw input into a BuildingType.
func ParseBuildingType(value string) (BuildingType, error) {
	for _, candidate := range validBuildingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid building type %q", value)
}
