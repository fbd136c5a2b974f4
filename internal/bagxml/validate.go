package bagxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/unt-libraries/coda/internal/db/models"
)

type validateXMLOut struct {
	XMLName            xml.Name `xml:"http://digital2.library.unt.edu/coda/validatexml/ validate"`
	Identifier         string   `xml:"identifier"`
	LastVerified       string   `xml:"last_verified"`
	LastVerifiedStatus string   `xml:"last_verified_status"`
	PriorityChangeDate string   `xml:"priority_change_date"`
	Priority           int      `xml:"priority"`
	Server             string   `xml:"server"`
}

func ValidateXML(v *models.Validate) ([]byte, error) {
	out := validateXMLOut{
		Identifier:         v.Identifier,
		LastVerified:       v.LastVerified.UTC().Format(time.RFC3339),
		LastVerifiedStatus: v.LastVerifiedStatus,
		PriorityChangeDate: v.PriorityChangeDate.UTC().Format(time.RFC3339),
		Priority:           v.Priority,
		Server:             v.Server,
	}
	return xml.MarshalIndent(out, "", "  ")
}

type validateXMLIn struct {
	XMLName            xml.Name `xml:"validate"`
	Identifier         *string  `xml:"identifier"`
	LastVerified       *string  `xml:"last_verified"`
	LastVerifiedStatus *string  `xml:"last_verified_status"`
	PriorityChangeDate *string  `xml:"priority_change_date"`
	Priority           *string  `xml:"priority"`
	Server             *string  `xml:"server"`
}

// ParseValidate decodes a validate element. Only the identifier is
// required; everything else falls back to the unverified defaults so a
// worker can report partial state.
func ParseValidate(data []byte) (*models.Validate, error) {
	var in validateXMLIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unable to parse uploaded XML: %w", err)
	}

	// last_verified_status stays empty when the payload omits it so
	// update callers can tell "absent" from "Unverified"; the create
	// path applies the Unverified default.
	v := &models.Validate{
		LastVerified:       models.VerifiedSentinel,
		PriorityChangeDate: models.VerifiedSentinel,
	}

	if in.Identifier == nil || strings.TrimSpace(*in.Identifier) == "" {
		return nil, &FieldError{Field: "identifier"}
	}
	v.Identifier = strings.TrimSpace(*in.Identifier)

	if in.LastVerified != nil && strings.TrimSpace(*in.LastVerified) != "" {
		if t, err := parseTime(strings.TrimSpace(*in.LastVerified)); err == nil {
			v.LastVerified = t
		}
	}
	if in.LastVerifiedStatus != nil && strings.TrimSpace(*in.LastVerifiedStatus) != "" {
		v.LastVerifiedStatus = strings.TrimSpace(*in.LastVerifiedStatus)
	}
	if in.PriorityChangeDate != nil && strings.TrimSpace(*in.PriorityChangeDate) != "" {
		if t, err := parseTime(strings.TrimSpace(*in.PriorityChangeDate)); err == nil {
			v.PriorityChangeDate = t
		}
	}
	if in.Priority != nil && strings.TrimSpace(*in.Priority) != "" {
		if priority, err := strconv.Atoi(strings.TrimSpace(*in.Priority)); err == nil && priority >= 0 {
			v.Priority = priority
		}
	}
	if in.Server != nil {
		v.Server = strings.TrimSpace(*in.Server)
	}

	return v, nil
}
