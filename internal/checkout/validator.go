package checkout

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agroworld/storefront/pkg/enums"
)

const (
	// DefaultMinLeadDays is how many calendar days ahead a delivery must be booked.
	DefaultMinLeadDays = 3
	phoneDigits        = 9
	dateLayout         = "2006-01-02"
)

var (
	fieldValidate = validator.New()
	phoneRule     = fmt.Sprintf("len=%d,number", phoneDigits)
)

var requiredMessages = map[string]string{
	FieldTitle:        "title is required",
	FieldFullName:     "full name is required",
	FieldPhone1:       "phone number is required",
	FieldDeliveryDate: "delivery date is required",
	FieldTimeSlot:     "time slot is required",
	FieldCenterID:     "pickup center is required",
	FieldBuildingType: "building type is required",
	FieldBuildingName: "building name is required",
	FieldBuildingNo:   "building number is required",
	FieldFlatNumber:   "flat number is required",
	FieldFloorNumber:  "floor number is required",
	FieldHouseNo:      "house number is required",
	FieldStreet:       "street is required",
	FieldCityName:     "city is required",
	FieldGeoLatitude:  "pick the delivery location on the map",
	FieldGeoLongitude: "pick the delivery location on the map",
}

// Result is the outcome of validating a draft. Errors only ever name fields
// that apply to the draft's current delivery method and building type.
type Result struct {
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors"`
	Cleared []string          `json:"cleared,omitempty"`
}

// Validator checks checkout drafts. The zero value validates against the
// current UTC date with the default lead time.
type Validator struct {
	Now         func() time.Time
	MinLeadDays int
	Location    *time.Location
}

// Validate runs every rule that applies to the draft.
func (v Validator) Validate(d Details) Result {
	d = d.Normalize()
	errs := map[string]string{}

	if !d.DeliveryMethod.IsValid() {
		errs[FieldDeliveryMethod] = "select home delivery or pickup"
	}
	for _, field := range d.ApplicableFields() {
		if !d.present(field) {
			errs[field] = requiredMessages[field]
		}
	}

	if d.Phone1 != "" && !validPhone(d.Phone1) {
		errs[FieldPhone1] = fmt.Sprintf("phone number must be exactly %d digits", phoneDigits)
	}
	if d.Phone2 != "" {
		switch {
		case !validPhone(d.Phone2):
			errs[FieldPhone2] = fmt.Sprintf("phone number must be exactly %d digits", phoneDigits)
		case d.PhoneCode2 == d.PhoneCode1 && d.Phone2 == d.Phone1:
			errs[FieldPhone2] = "second phone number must differ from the first"
		}
	}

	if d.DeliveryMethod == enums.DeliveryMethodHome && d.BuildingType != "" && !d.BuildingType.IsValid() {
		errs[FieldBuildingType] = "select a valid building type"
	}

	if d.DeliveryDate != "" {
		if msg := v.checkDate(d.DeliveryDate); msg != "" {
			errs[FieldDeliveryDate] = msg
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Revalidate validates the draft again after an edit, typically a delivery
// method switch, and lists the fields whose previous error went away.
func (v Validator) Revalidate(prev Result, d Details) Result {
	next := v.Validate(d)
	for field := range prev.Errors {
		if _, still := next.Errors[field]; !still {
			next.Cleared = append(next.Cleared, field)
		}
	}
	sort.Strings(next.Cleared)
	return next
}

// EarliestDeliveryDate is the first date a delivery may be booked for.
func (v Validator) EarliestDeliveryDate() time.Time {
	loc := v.location()
	now := v.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, v.leadDays())
}

func (v Validator) checkDate(raw string) string {
	loc := v.location()
	date, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		ts, rfcErr := time.Parse(time.RFC3339, raw)
		if rfcErr != nil {
			return "enter a valid delivery date"
		}
		ts = ts.In(loc)
		date = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
	}
	if date.Before(v.EarliestDeliveryDate()) {
		return fmt.Sprintf("delivery date must be at least %d days from today", v.leadDays())
	}
	return ""
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v Validator) location() *time.Location {
	if v.Location != nil {
		return v.Location
	}
	return time.UTC
}

func (v Validator) leadDays() int {
	if v.MinLeadDays > 0 {
		return v.MinLeadDays
	}
	return DefaultMinLeadDays
}

func validPhone(value string) bool {
	return fieldValidate.Var(value, phoneRule) == nil
}
