package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// Provider runs web and places searches against an external search API
type Provider interface {
	OrganicSearch(ctx context.Context, query, location string, limit int) (*OrganicResults, error)
	PlacesSearch(ctx context.Context, query, location string, limit int) (*PlacesResults, error)
}

// OrganicResults is a raw organic web search result set
type OrganicResults struct {
	Organic []OrganicResult `json:"organic"`
}

// OrganicResult is one organic search hit; every field is optional
type OrganicResult struct {
	Title   FlexString `json:"title"`
	Link    FlexString `json:"link"`
	Snippet FlexString `json:"snippet"`
}

// PlacesResults is a raw places search result set
type PlacesResults struct {
	Places []Place `json:"places"`
}

// Place is one structured business listing; every field is optional
type Place struct {
	Title       FlexString `json:"title"`
	Website     FlexString `json:"website"`
	PhoneNumber FlexString `json:"phoneNumber"`
	Address     FlexString `json:"address"`
	Rating      FlexString `json:"rating"`
}

// FlexString decodes a JSON string, number or bool into a string.
// Anything else, including null, decodes to the empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(n.String())
	}
	return nil
}

// String returns the decoded value
func (f FlexString) String() string {
	return string(f)
}
