package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PhotoRefs is an array of opaque file-store references stored as JSON
type PhotoRefs []string

// Scan implements the sql.Scanner interface for PhotoRefs
func (p *PhotoRefs) Scan(value interface{}) error {
	if value == nil {
		*p = PhotoRefs{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PhotoRefs", value)
	}

	return json.Unmarshal(bytes, p)
}

// Value implements the driver.Valuer interface for PhotoRefs
func (p PhotoRefs) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PhotoRefs{})
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for TicketStatus
func (ts *TicketStatus) Scan(value interface{}) error {
	return scanStringEnum(value, "TicketStatus", func(s string) { *ts = TicketStatus(s) })
}

// Value implements the driver.Valuer interface for TicketStatus
func (ts TicketStatus) Value() (driver.Value, error) {
	return string(ts), nil
}

// Scan implements the sql.Scanner interface for MissionStatus
func (ms *MissionStatus) Scan(value interface{}) error {
	return scanStringEnum(value, "MissionStatus", func(s string) { *ms = MissionStatus(s) })
}

// Value implements the driver.Valuer interface for MissionStatus
func (ms MissionStatus) Value() (driver.Value, error) {
	return string(ms), nil
}

// Scan implements the sql.Scanner interface for InvoiceStatus
func (is *InvoiceStatus) Scan(value interface{}) error {
	return scanStringEnum(value, "InvoiceStatus", func(s string) { *is = InvoiceStatus(s) })
}

// Value implements the driver.Valuer interface for InvoiceStatus
func (is InvoiceStatus) Value() (driver.Value, error) {
	return string(is), nil
}

// Scan implements the sql.Scanner interface for NotificationStatus
func (ns *NotificationStatus) Scan(value interface{}) error {
	return scanStringEnum(value, "NotificationStatus", func(s string) { *ns = NotificationStatus(s) })
}

// Value implements the driver.Valuer interface for NotificationStatus
func (ns NotificationStatus) Value() (driver.Value, error) {
	return string(ns), nil
}

func scanStringEnum(value interface{}, typeName string, set func(string)) error {
	if value == nil {
		set("")
		return nil
	}
	switch v := value.(type) {
	case string:
		set(v)
	case []byte:
		set(string(v))
	default:
		return fmt.Errorf("cannot scan %T into %s", value, typeName)
	}
	return nil
}
