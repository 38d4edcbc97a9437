package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Address is stored as JSONB on the order row.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// MissingFields returns the json names of required fields left blank.
func (a Address) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

func (a Address) Value() (driver.Value, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Address) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return errors.New("scan address: null value")
	default:
		return fmt.Errorf("scan address: unsupported type %T", src)
	}
	return json.Unmarshal(data, a)
}

// NullAddress scans an optional address column.
type NullAddress struct {
	Address *Address
}

func (n NullAddress) Value() (driver.Value, error) {
	if n.Address == nil {
		return nil, nil
	}
	return n.Address.Value()
}

func (n *NullAddress) Scan(src any) error {
	if src == nil {
		n.Address = nil
		return nil
	}
	var a Address
	if err := a.Scan(src); err != nil {
		return err
	}
	n.Address = &a
	return nil
}
