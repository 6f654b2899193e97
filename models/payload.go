package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadKind tells the caller which shape an extraction payload took.
type PayloadKind int

const (
	// PayloadRecords is a JSON array of record field-maps.
	PayloadRecords PayloadKind = iota
	// PayloadError is a JSON object carrying an operator-facing error
	// message under the "error" key.
	PayloadError
	// PayloadMessage is anything else; the raw text is shown as-is.
	PayloadMessage
)

// Payload is the decoded form of the one opaque string the scraper
// hands to its caller.
type Payload struct {
	Kind    PayloadKind
	Records []*CustomerRecord
	Message string
}

// Field identifiers used in the serialized record batch.
const (
	FieldName           = "name"
	FieldMobile         = "mobile"
	FieldPhone          = "phone"
	FieldProvince       = "province"
	FieldCity           = "city"
	FieldPostalCode     = "postalCode"
	FieldAddress        = "address"
	FieldNotes          = "notes"
	FieldRegisteredAt   = "registeredAt"
	FieldSeller         = "seller"
	FieldDeliveryStatus = "deliveryStatus"
)

// FieldMap flattens the scraped fields into the batch wire form.
// Operator-owned fields are deliberately absent; they never travel in
// a scrape batch.
func (r *CustomerRecord) FieldMap() map[string]string {
	return map[string]string{
		FieldName:           r.Name,
		FieldMobile:         r.Mobile,
		FieldPhone:          r.Phone,
		FieldProvince:       r.Province,
		FieldCity:           r.City,
		FieldPostalCode:     r.PostalCode,
		FieldAddress:        r.Address,
		FieldNotes:          r.Notes,
		FieldRegisteredAt:   r.RegisteredAt,
		FieldSeller:         r.Seller,
		FieldDeliveryStatus: r.DeliveryStatus,
	}
}

// RecordFromFieldMap builds a first-seen record from a batch entry.
// Missing keys default to the empty string and the triage state starts
// at pending.
func RecordFromFieldMap(m map[string]string) *CustomerRecord {
	return &CustomerRecord{
		Name:           m[FieldName],
		Mobile:         m[FieldMobile],
		Phone:          m[FieldPhone],
		Province:       m[FieldProvince],
		City:           m[FieldCity],
		PostalCode:     m[FieldPostalCode],
		Address:        m[FieldAddress],
		Notes:          m[FieldNotes],
		RegisteredAt:   m[FieldRegisteredAt],
		Seller:         m[FieldSeller],
		DeliveryStatus: m[FieldDeliveryStatus],
		Status:         StatusPending,
	}
}

// EncodeRecords serializes a scraped batch as the array-shaped payload.
func EncodeRecords(records []*CustomerRecord) (string, error) {
	maps := make([]map[string]string, 0, len(records))
	for _, r := range records {
		maps = append(maps, r.FieldMap())
	}
	data, err := json.Marshal(maps)
	if err != nil {
		return "", fmt.Errorf("encode record batch: %w", err)
	}
	return string(data), nil
}

// EncodeError serializes an operator-facing failure as the
// object-shaped payload.
func EncodeError(message string) string {
	data, _ := json.Marshal(map[string]string{"error": message})
	return string(data)
}

// DecodePayload classifies and decodes an extraction payload. Array
// payloads become record batches, objects with an "error" key become
// error messages, everything else passes through as a plain message.
func DecodePayload(raw string) Payload {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return Payload{Kind: PayloadMessage, Message: ""}
	}

	switch trimmed[0] {
	case '[':
		var maps []map[string]string
		if err := json.Unmarshal([]byte(trimmed), &maps); err != nil {
			return Payload{Kind: PayloadMessage, Message: raw}
		}
		records := make([]*CustomerRecord, 0, len(maps))
		for _, m := range maps {
			records = append(records, RecordFromFieldMap(m))
		}
		return Payload{Kind: PayloadRecords, Records: records}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return Payload{Kind: PayloadMessage, Message: raw}
		}
		var message string
		if errVal, ok := obj["error"]; ok {
			if err := json.Unmarshal(errVal, &message); err != nil || message == "" {
				message = raw
			}
		} else {
			message = raw
		}
		return Payload{Kind: PayloadError, Message: message}
	default:
		return Payload{Kind: PayloadMessage, Message: raw}
	}
}
