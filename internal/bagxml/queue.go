package bagxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/unt-libraries/coda/internal/db/models"
)

type queueEntryXMLOut struct {
	XMLName     xml.Name `xml:"http://digital2.library.unt.edu/coda/queuexml/ queueEntry"`
	Ark         string   `xml:"ark"`
	Oxum        string   `xml:"oxum"`
	URLListLink string   `xml:"urlListLink"`
	Status      string   `xml:"status"`
	Start       string   `xml:"start,omitempty"`
	End         string   `xml:"end,omitempty"`
	Position    int      `xml:"position"`
}

// QueueEntryXML renders a queue entry. The oxum travels as a single
// "<bytes>.<files>" string, not as separate fields.
func QueueEntryXML(q *models.QueueEntry) ([]byte, error) {
	out := queueEntryXMLOut{
		Ark:         q.Ark,
		Oxum:        q.Oxum(),
		URLListLink: q.URLList,
		Status:      q.Status,
		Position:    q.QueuePosition,
	}
	if q.HarvestStart != nil {
		out.Start = q.HarvestStart.UTC().Format(queueTimeLayout)
	}
	if q.HarvestEnd != nil {
		out.End = q.HarvestEnd.UTC().Format(queueTimeLayout)
	}
	return xml.MarshalIndent(out, "", "  ")
}

type queueEntryXMLIn struct {
	XMLName     xml.Name `xml:"queueEntry"`
	Ark         *string  `xml:"ark"`
	Oxum        *string  `xml:"oxum"`
	URLListLink *string  `xml:"urlListLink"`
	Status      *string  `xml:"status"`
	Start       *string  `xml:"start"`
	End         *string  `xml:"end"`
	Position    *string  `xml:"position"`
}

func ParseQueueEntry(data []byte) (*models.QueueEntry, error) {
	var in queueEntryXMLIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unable to parse uploaded XML: %w", err)
	}

	entry := &models.QueueEntry{}

	if in.Ark == nil || strings.TrimSpace(*in.Ark) == "" {
		return nil, &FieldError{Field: "ark"}
	}
	entry.Ark = strings.TrimSpace(*in.Ark)

	if in.Oxum == nil {
		return nil, &FieldError{Field: "oxum"}
	}
	bytesPart, filesPart, ok := strings.Cut(strings.TrimSpace(*in.Oxum), ".")
	if !ok {
		return nil, &FieldError{Field: "oxum"}
	}
	byteCount, err := strconv.ParseInt(bytesPart, 10, 64)
	if err != nil {
		return nil, &FieldError{Field: "oxum"}
	}
	fileCount, err := strconv.Atoi(filesPart)
	if err != nil {
		return nil, &FieldError{Field: "oxum"}
	}
	entry.Bytes = byteCount
	entry.Files = fileCount

	if in.URLListLink != nil {
		entry.URLList = strings.TrimSpace(*in.URLListLink)
	}
	if in.Status != nil {
		entry.Status = strings.TrimSpace(*in.Status)
	}
	if in.Position != nil && strings.TrimSpace(*in.Position) != "" {
		position, err := strconv.Atoi(strings.TrimSpace(*in.Position))
		if err == nil {
			entry.QueuePosition = position
		}
	}
	if in.Start != nil && strings.TrimSpace(*in.Start) != "" {
		if t, err := parseTime(strings.TrimSpace(*in.Start)); err == nil {
			entry.HarvestStart = &t
		}
	}
	if in.End != nil && strings.TrimSpace(*in.End) != "" {
		if t, err := parseTime(strings.TrimSpace(*in.End)); err == nil {
			entry.HarvestEnd = &t
		}
	}

	return entry, nil
}
