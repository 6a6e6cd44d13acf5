package models

import (
	"strings"
	"time"
)

// Column names of the snapshot file, in file order.
const (
	ColBookingID      = "Booking ID"
	ColName           = "Name"
	ColPhone          = "Phone"
	ColEmail          = "Email"
	ColAddress        = "Address"
	ColPropertyType   = "Property Type"
	ColInspectionDate = "Inspection Date"
	ColCreatedAt      = "Created At"
	ColStatus         = "Status"
)

// Header is the fixed header row of the snapshot file.
var Header = []string{
	ColBookingID,
	ColName,
	ColPhone,
	ColEmail,
	ColAddress,
	ColPropertyType,
	ColInspectionDate,
	ColCreatedAt,
	ColStatus,
}

// CreatedAtLayout is the layout Created At is rewritten to.
const CreatedAtLayout = "2006-01-02 15:04:05"

// Booking is a normalized home-inspection booking as stored in the snapshot.
type Booking struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	PropertyType   string `json:"propertyType"`
	InspectionDate string `json:"inspectionDate"`
	CreatedAt      string `json:"createdAt"`
	Status         string `json:"status"`
}

// FromFields builds a Booking from the raw hash fields of a remote record.
// Missing fields become empty strings. Line breaks are normalized to "\n",
// the form a value has after a round trip through the snapshot file.
func FromFields(fields map[string]string) Booking {
	get := func(key string) string {
		return normalizeNewlines(fields[key])
	}
	return Booking{
		ID:             get("id"),
		Name:           get("name"),
		Phone:          get("phone"),
		Email:          get("email"),
		Address:        get("address"),
		PropertyType:   get("propertyType"),
		InspectionDate: get("inspectionDate"),
		CreatedAt:      FormatCreatedAt(get("createdAt")),
		Status:         get("status"),
	}
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return newlineReplacer.Replace(s)
}

// FormatCreatedAt rewrites an ISO-8601 timestamp as "YYYY-MM-DD HH:MM:SS",
// keeping the timestamp's own wall clock. Values that do not parse are
// returned unchanged.
func FormatCreatedAt(raw string) string {
	if raw == "" {
		return raw
	}
	value := raw
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(CreatedAtLayout)
		}
	}
	return raw
}

// Layouts accepted by FormatCreatedAt. Fractional seconds of any precision
// are matched by the ".999999999" element.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Row returns the booking's values in Header order.
func (b Booking) Row() []string {
	return []string{
		b.ID,
		b.Name,
		b.Phone,
		b.Email,
		b.Address,
		b.PropertyType,
		b.InspectionDate,
		b.CreatedAt,
		b.Status,
	}
}

// FromRecord maps a CSV row onto a Booking using a column index built from
// the file's header. Columns missing from the row read as empty strings.
func FromRecord(index map[string]int, record []string) Booking {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	return Booking{
		ID:             get(ColBookingID),
		Name:           get(ColName),
		Phone:          get(ColPhone),
		Email:          get(ColEmail),
		Address:        get(ColAddress),
		PropertyType:   get(ColPropertyType),
		InspectionDate: get(ColInspectionDate),
		CreatedAt:      get(ColCreatedAt),
		Status:         get(ColStatus),
	}
}

// Diff returns the names of the columns whose values differ, in Header order.
func Diff(a, b Booking) []string {
	ra, rb := a.Row(), b.Row()
	var changed []string
	for i := range ra {
		if ra[i] != rb[i] {
			changed = append(changed, Header[i])
		}
	}
	return changed
}
