package bagxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/unt-libraries/coda/internal/db/models"
)

// ExternalIdentifierField is the reserved bag-info field name whose values
// are mirrored into ExternalIdentifier records.
const ExternalIdentifierField = "External-Identifier"

type codaXMLOut struct {
	XMLName      xml.Name       `xml:"http://digital2.library.unt.edu/coda/bagxml/ codaXML"`
	Name         string         `xml:"name"`
	FileCount    int            `xml:"fileCount"`
	PayloadSize  int64          `xml:"payloadSize"`
	BagitVersion string         `xml:"bagitVersion"`
	LastVerified string         `xml:"lastVerified,omitempty"`
	LastStatus   string         `xml:"lastStatus,omitempty"`
	BagInfo      bagInfoListOut `xml:"bagInfo"`
}

type bagInfoListOut struct {
	Items []bagItemOut `xml:"item"`
}

type bagItemOut struct {
	Name string `xml:"name"`
	Body string `xml:"body"`
}

// BagXML renders a bag and its info fields as a codaXML element. The
// lastVerified pair is best effort: it is omitted when the bag has never
// been verified rather than failing the whole encode.
func BagXML(bag *models.Bag, infos []models.BagInfo) ([]byte, error) {
	out := codaXMLOut{
		Name:         bag.Name,
		FileCount:    bag.Files,
		PayloadSize:  bag.Size,
		BagitVersion: bag.BagitVersion,
	}
	if !bag.LastVerifiedDate.IsZero() {
		out.LastVerified = bag.LastVerifiedDate.Format(dateLayout)
		out.LastStatus = bag.LastVerifiedStatus
	}
	for _, info := range infos {
		out.BagInfo.Items = append(out.BagInfo.Items, bagItemOut{
			Name: info.FieldName,
			Body: info.FieldBody,
		})
	}
	return xml.MarshalIndent(out, "", "  ")
}

type codaXMLIn struct {
	XMLName      xml.Name `xml:"codaXML"`
	Name         *string  `xml:"name"`
	FileCount    *string  `xml:"fileCount"`
	PayloadSize  *string  `xml:"payloadSize"`
	BagitVersion *string  `xml:"bagitVersion"`
	LastVerified *string  `xml:"lastVerified"`
	LastStatus   *string  `xml:"lastStatus"`
	BaggingDate  *string  `xml:"baggingDate"`
	BagInfo      struct {
		Items []bagItemIn `xml:"item"`
	} `xml:"bagInfo"`
}

type bagItemIn struct {
	Name *string `xml:"name"`
	Body *string `xml:"body"`
}

// ParseBag decodes a codaXML element into a bag, its info fields, and any
// external identifiers named in those fields. Nothing is persisted here;
// the caller saves everything in one transaction.
func ParseBag(data []byte) (*models.Bag, []models.BagInfo, []models.ExternalIdentifier, error) {
	var in codaXMLIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, nil, nil, fmt.Errorf("unable to parse uploaded XML: %w", err)
	}

	bag := &models.Bag{}

	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, nil, nil, &FieldError{Field: "name"}
	}
	bag.Name = strings.TrimSpace(*in.Name)

	if in.FileCount == nil {
		return nil, nil, nil, &FieldError{Field: "files"}
	}
	files, err := strconv.Atoi(strings.TrimSpace(*in.FileCount))
	if err != nil {
		return nil, nil, nil, &FieldError{Field: "files"}
	}
	bag.Files = files

	if in.PayloadSize == nil {
		return nil, nil, nil, &FieldError{Field: "size"}
	}
	size, err := strconv.ParseInt(strings.TrimSpace(*in.PayloadSize), 10, 64)
	if err != nil {
		return nil, nil, nil, &FieldError{Field: "size"}
	}
	bag.Size = size

	if in.BagitVersion != nil {
		bag.BagitVersion = strings.TrimSpace(*in.BagitVersion)
	}

	bag.LastVerifiedDate = now()
	if in.LastVerified != nil {
		if t, err := parseTime(strings.TrimSpace(*in.LastVerified)); err == nil {
			bag.LastVerifiedDate = t
		}
	}

	bag.LastVerifiedStatus = "pass"
	if in.LastStatus != nil && strings.TrimSpace(*in.LastStatus) != "" {
		bag.LastVerifiedStatus = strings.TrimSpace(*in.LastStatus)
	}

	bag.BaggingDate = now()
	if in.BaggingDate != nil {
		if t, err := parseTime(strings.TrimSpace(*in.BaggingDate)); err == nil {
			bag.BaggingDate = t
		}
	}

	var infos []models.BagInfo
	var extIDs []models.ExternalIdentifier
	for _, item := range in.BagInfo.Items {
		// skip malformed items rather than failing the decode
		if item.Name == nil || item.Body == nil {
			continue
		}
		name := strings.TrimSpace(*item.Name)
		body := strings.TrimSpace(*item.Body)
		if name == "" {
			continue
		}
		infos = append(infos, models.BagInfo{
			BagName:   bag.Name,
			FieldName: name,
			FieldBody: body,
		})
		if name == ExternalIdentifierField {
			extIDs = append(extIDs, models.ExternalIdentifier{
				BagName: bag.Name,
				Value:   body,
			})
		}
	}

	return bag, infos, extIDs, nil
}
