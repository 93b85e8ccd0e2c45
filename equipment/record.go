// Package equipment reads EqHub equipment JSON and projects its measured
// properties onto mapped predicates.
package equipment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	errs "github.com/c360studio/semequip/errors"
)

// Record is the part of an equipment document a transform consumes.
type Record struct {
	// ID is the decimal text of eqhubProductId. Never empty on a parsed record.
	ID string

	// ClassID is requirementsClass.requirementsClassId; it may be empty.
	ClassID string

	Properties []PropertyValue
}

type document struct {
	Data struct {
		Data struct {
			ProductID         json.RawMessage `json:"eqhubProductId"`
			RequirementsClass *struct {
				ID string `json:"requirementsClassId"`
			} `json:"requirementsClass"`
		} `json:"data"`
		Properties []rawProperty `json:"properties"`
	} `json:"data"`
}

type rawProperty struct {
	PropertyRequirement *struct {
		ID string `json:"propertyRequirementId"`
	} `json:"propertyRequirement"`
	Data json.RawMessage `json:"data"`
}

// ParseRecord extracts the identity, class and properties of an equipment
// document. Fields other than the ones it reads are ignored.
func ParseRecord(data []byte) (*Record, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.KindParse, err, "equipment.ParseRecord", "decode equipment document")
	}

	id, err := productID(doc.Data.Data.ProductID)
	if err != nil {
		return nil, err
	}

	rec := &Record{ID: id}
	if rc := doc.Data.Data.RequirementsClass; rc != nil {
		rec.ClassID = rc.ID
	}

	for i, p := range doc.Data.Properties {
		pv := PropertyValue{}
		if p.PropertyRequirement != nil {
			pv.PropertyID = p.PropertyRequirement.ID
		}
		pv.Value, err = FirstValue(p.Data)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, err, "equipment.ParseRecord",
				fmt.Sprintf("properties[%d]", i))
		}
		rec.Properties = append(rec.Properties, pv)
	}
	return rec, nil
}

// productID renders eqhubProductId as decimal text. Integral numbers and
// strings holding an integer are accepted; an absent, null or blank value is
// a missing field.
func productID(raw json.RawMessage) (string, error) {
	const field = "eqhubProductId"
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", errs.MissingField("equipment.ParseRecord", field)
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", errs.Wrap(errs.KindParse, err, "equipment.ParseRecord", field)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errs.MissingField("equipment.ParseRecord", field)
		}
	default:
		text = string(raw)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return "", errs.New(errs.KindParse, "equipment.ParseRecord",
			"%s must be an integer, got %s", field, string(raw))
	}
	return strconv.FormatInt(n, 10), nil
}
