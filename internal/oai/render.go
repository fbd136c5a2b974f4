package oai

import (
	"encoding/xml"
	"time"

	"github.com/unt-libraries/coda/internal/bagxml"
)

const (
	pmhNamespace = "http://www.openarchives.org/OAI/2.0/"
	pmhSchema    = "http://www.openarchives.org/OAI/2.0/OAI-PMH.xsd"
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
	oaiDCSchema  = "http://www.openarchives.org/OAI/2.0/oai_dc.xsd"
)

const datestampLayout = "2006-01-02T15:04:05Z"

// Declaration prepends the XML declaration to a rendered response.
const Declaration = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"

// ContentType is the media type for harvesting responses.
const ContentType = "text/xml"

// Request echoes the client's arguments back inside the response
// envelope, as the protocol requires.
type Request struct {
	Verb            string
	Identifier      string
	MetadataPrefix  string
	From            string
	Until           string
	ResumptionToken string
	BaseURL         string
}

type requestOut struct {
	Verb            string `xml:"verb,attr,omitempty"`
	Identifier      string `xml:"identifier,attr,omitempty"`
	MetadataPrefix  string `xml:"metadataPrefix,attr,omitempty"`
	From            string `xml:"from,attr,omitempty"`
	Until           string `xml:"until,attr,omitempty"`
	ResumptionToken string `xml:"resumptionToken,attr,omitempty"`
	BaseURL         string `xml:",chardata"`
}

type errorOut struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type headerOut struct {
	Identifier string `xml:"identifier"`
	Datestamp  string `xml:"datestamp"`
}

type metadataOut struct {
	Inner []byte `xml:",innerxml"`
}

type recordOut struct {
	Header   headerOut    `xml:"header"`
	Metadata *metadataOut `xml:"metadata"`
}

type resumptionOut struct {
	Token string `xml:",chardata"`
}

type identifyOut struct {
	RepositoryName    string   `xml:"repositoryName"`
	BaseURL           string   `xml:"baseURL"`
	ProtocolVersion   string   `xml:"protocolVersion"`
	AdminEmails       []string `xml:"adminEmail"`
	EarliestDatestamp string   `xml:"earliestDatestamp"`
	DeletedRecord     string   `xml:"deletedRecord"`
	Granularity       string   `xml:"granularity"`
}

type metadataFormatOut struct {
	Prefix    string `xml:"metadataPrefix"`
	Schema    string `xml:"schema"`
	Namespace string `xml:"metadataNamespace"`
}

type getRecordOut struct {
	Record recordOut `xml:"record"`
}

type listRecordsOut struct {
	Records    []recordOut    `xml:"record"`
	Resumption *resumptionOut `xml:"resumptionToken"`
}

type listIdentifiersOut struct {
	Headers    []headerOut    `xml:"header"`
	Resumption *resumptionOut `xml:"resumptionToken"`
}

type listMetadataFormatsOut struct {
	Formats []metadataFormatOut `xml:"metadataFormat"`
}

type envelopeOut struct {
	XMLName             xml.Name                `xml:"OAI-PMH"`
	Xmlns               string                  `xml:"xmlns,attr"`
	XmlnsXSI            string                  `xml:"xmlns:xsi,attr"`
	SchemaLocation      string                  `xml:"xsi:schemaLocation,attr"`
	ResponseDate        string                  `xml:"responseDate"`
	Request             requestOut              `xml:"request"`
	Error               *errorOut               `xml:"error"`
	Identify            *identifyOut            `xml:"Identify"`
	GetRecord           *getRecordOut           `xml:"GetRecord"`
	ListRecords         *listRecordsOut         `xml:"ListRecords"`
	ListIdentifiers     *listIdentifiersOut     `xml:"ListIdentifiers"`
	ListMetadataFormats *listMetadataFormatsOut `xml:"ListMetadataFormats"`
}

type dcOut struct {
	XMLName        xml.Name `xml:"oai_dc:dc"`
	XmlnsOAIDC     string   `xml:"xmlns:oai_dc,attr"`
	XmlnsDC        string   `xml:"xmlns:dc,attr"`
	XmlnsXSI       string   `xml:"xmlns:xsi,attr"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr"`
	Identifiers    []string `xml:"dc:identifier"`
	Creators       []string `xml:"dc:creator"`
	Descriptions   []string `xml:"dc:description"`
	Dates          []string `xml:"dc:date"`
}

// Response accumulates one OAI-PMH reply. Exactly one payload setter
// should be called before Render. A badVerb or badArgument error also
// strips the echoed request arguments, since the protocol forbids
// echoing arguments it could not validate.
type Response struct {
	envelope envelopeOut
}

func NewResponse(req Request) *Response {
	return &Response{envelope: envelopeOut{
		Xmlns:          pmhNamespace,
		XmlnsXSI:       xsiNamespace,
		SchemaLocation: pmhNamespace + " " + pmhSchema,
		ResponseDate:   time.Now().UTC().Format(datestampLayout),
		Request: requestOut{
			Verb:            req.Verb,
			Identifier:      req.Identifier,
			MetadataPrefix:  req.MetadataPrefix,
			From:            req.From,
			Until:           req.Until,
			ResumptionToken: req.ResumptionToken,
			BaseURL:         req.BaseURL,
		},
	}}
}

func (r *Response) SetError(err *Error) {
	if err.Code == CodeBadVerb || err.Code == CodeBadArgument {
		base := r.envelope.Request.BaseURL
		r.envelope.Request = requestOut{BaseURL: base}
	}
	r.envelope.Error = &errorOut{Code: err.Code, Message: err.Message}
}

func (r *Response) SetIdentify(identity Identity) {
	r.envelope.Identify = &identifyOut{
		RepositoryName:    identity.RepositoryName,
		BaseURL:           identity.BaseURL,
		ProtocolVersion:   identity.ProtocolVersion,
		AdminEmails:       identity.AdminEmails,
		EarliestDatestamp: identity.EarliestDatestamp,
		DeletedRecord:     identity.DeletedRecord,
		Granularity:       identity.Granularity,
	}
}

func (r *Response) SetListMetadataFormats(formats []MetadataFormat) {
	out := &listMetadataFormatsOut{}
	for _, format := range formats {
		out.Formats = append(out.Formats, metadataFormatOut{
			Prefix:    format.Prefix,
			Schema:    format.Schema,
			Namespace: format.Namespace,
		})
	}
	r.envelope.ListMetadataFormats = out
}

func (r *Response) SetGetRecord(record *Record) error {
	out, err := renderRecord(record)
	if err != nil {
		return err
	}
	r.envelope.GetRecord = &getRecordOut{Record: *out}
	return nil
}

func (r *Response) SetListRecords(records []Record, next string) error {
	out := &listRecordsOut{}
	for i := range records {
		rendered, err := renderRecord(&records[i])
		if err != nil {
			return err
		}
		out.Records = append(out.Records, *rendered)
	}
	if next != "" {
		out.Resumption = &resumptionOut{Token: next}
	}
	r.envelope.ListRecords = out
	return nil
}

func (r *Response) SetListIdentifiers(headers []Header, next string) {
	out := &listIdentifiersOut{}
	for _, header := range headers {
		out.Headers = append(out.Headers, renderHeader(header))
	}
	if next != "" {
		out.Resumption = &resumptionOut{Token: next}
	}
	r.envelope.ListIdentifiers = out
}

func (r *Response) Render() ([]byte, error) {
	body, err := xml.MarshalIndent(r.envelope, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(Declaration), body...), nil
}

func renderHeader(header Header) headerOut {
	return headerOut{
		Identifier: header.Identifier,
		Datestamp:  header.Datestamp.Format(datestampLayout),
	}
}

func renderRecord(record *Record) (*recordOut, error) {
	out := &recordOut{Header: renderHeader(record.Header)}
	switch {
	case record.DC != nil:
		inner, err := xml.Marshal(dcOut{
			XmlnsOAIDC:     "http://www.openarchives.org/OAI/2.0/oai_dc/",
			XmlnsDC:        dcNamespace,
			XmlnsXSI:       xsiNamespace,
			SchemaLocation: "http://www.openarchives.org/OAI/2.0/oai_dc/ " + oaiDCSchema,
			Identifiers:    record.DC.Identifiers,
			Creators:       record.DC.Creators,
			Descriptions:   record.DC.Descriptions,
			Dates:          record.DC.Dates,
		})
		if err != nil {
			return nil, err
		}
		out.Metadata = &metadataOut{Inner: inner}
	case record.Bag != nil:
		inner, err := bagxml.BagXML(record.Bag, record.Infos)
		if err != nil {
			return nil, err
		}
		out.Metadata = &metadataOut{Inner: inner}
	}
	return out, nil
}
