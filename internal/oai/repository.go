package oai

import (
	"errors"
	"time"

	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/internal/services"
	"go.uber.org/zap"
)

// Supported metadata prefixes.
const (
	PrefixDC  = "oai_dc"
	PrefixBag = "coda_bag"
)

const baggingDateLayout = "2006-01-02"

// defaultFrom bounds open-ended list requests.
var defaultFrom = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrEmptyMetadata reports a bag that yielded no Dublin Core elements
// at all, which indicates a corrupt record rather than a thin one.
var ErrEmptyMetadata = errors.New("record produced no metadata elements")

// MetadataFormat is one (prefix, schema, namespace) tuple advertised by
// ListMetadataFormats.
type MetadataFormat struct {
	Prefix    string
	Schema    string
	Namespace string
}

// Identity holds the repository description returned by Identify.
type Identity struct {
	RepositoryName    string
	BaseURL           string
	ProtocolVersion   string
	AdminEmails       []string
	EarliestDatestamp string
	DeletedRecord     string
	Granularity       string
}

// Header identifies one record and the datestamp harvesters filter on.
type Header struct {
	Identifier string
	Datestamp  time.Time
}

// DublinCore holds the repeatable elements emitted for oai_dc records.
type DublinCore struct {
	Identifiers  []string
	Creators     []string
	Descriptions []string
	Dates        []string
}

// Record pairs a header with metadata in one of the two formats. Bag
// and Infos are populated for coda_bag, DC for oai_dc.
type Record struct {
	Header Header
	DC     *DublinCore
	Bag    *models.Bag
	Infos  []models.BagInfo
}

// Repository answers harvesting requests from the bag store.
type Repository struct {
	bags   *services.BagService
	cfg    *config.Configuration
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(bags *services.BagService, cfg *config.Configuration, logger *zap.Logger) *Repository {
	return &Repository{
		bags:   bags,
		cfg:    cfg,
		logger: logger.With(zap.String("service", "oai_repository")),
		now:    time.Now,
	}
}

func (r *Repository) Identify() Identity {
	return Identity{
		RepositoryName:    r.cfg.OAI.RepositoryName,
		BaseURL:           "http://" + r.cfg.Site.Domain + "/oai/",
		ProtocolVersion:   "2.0",
		AdminEmails:       r.cfg.OAI.AdminEmails,
		EarliestDatestamp: r.cfg.OAI.EarliestDatestamp,
		DeletedRecord:     "transient",
		Granularity:       "YYYY-MM-DDThh:mm:ssZ",
	}
}

// ListMetadataFormats advertises the supported formats. With an
// identifier it first checks the record exists.
func (r *Repository) ListMetadataFormats(identifier string) ([]MetadataFormat, error) {
	if identifier != "" {
		if _, _, err := r.bags.Get(InfoToArk(identifier)); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, idDoesNotExist(identifier)
			}
			return nil, err
		}
	}
	return []MetadataFormat{
		{
			Prefix:    PrefixDC,
			Schema:    "http://www.openarchives.org/OAI/2.0/OAI-PMH.xsd",
			Namespace: "http://www.openarchives.org/OAI/2.0/oai_dc/",
		},
		{
			Prefix:    PrefixBag,
			Schema:    "http://digital2.library.unt.edu/bagxml.xsd",
			Namespace: "http://digital2.library.unt.edu/coda/bagxml/",
		},
	}, nil
}

func validPrefix(prefix string) bool {
	return prefix == PrefixDC || prefix == PrefixBag
}

func (r *Repository) GetRecord(prefix, identifier string) (*Record, error) {
	if !validPrefix(prefix) {
		return nil, cannotDisseminateFormat(prefix)
	}
	bag, infos, err := r.bags.Get(InfoToArk(identifier))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, idDoesNotExist(identifier)
		}
		return nil, err
	}
	return r.makeRecord(bag, infos, prefix)
}

// ListRecords returns one batch of full records plus the resumption
// token for the next batch, empty when the list is exhausted.
func (r *Repository) ListRecords(prefix string, from, until *time.Time, token string) ([]Record, string, error) {
	return r.makeList(prefix, from, until, token)
}

// ListIdentifiers returns one batch of bare headers.
func (r *Repository) ListIdentifiers(prefix string, from, until *time.Time, token string) ([]Header, string, error) {
	records, next, err := r.makeList(prefix, from, until, token)
	if err != nil {
		return nil, "", err
	}
	headers := make([]Header, len(records))
	for i, record := range records {
		headers[i] = record.Header
	}
	return headers, next, nil
}

// ListSets always fails: the repository has no set hierarchy.
func (r *Repository) ListSets() error {
	return noSetHierarchy()
}

func (r *Repository) makeList(prefix string, from, until *time.Time, token string) ([]Record, string, error) {
	cursor := 0
	if token != "" {
		decoded, err := decodeResumptionToken(token)
		if err != nil {
			return nil, "", err
		}
		prefix = decoded.Prefix
		from = &decoded.From
		until = &decoded.Until
		cursor = decoded.Cursor
	}

	if !validPrefix(prefix) {
		return nil, "", cannotDisseminateFormat(prefix)
	}

	fromValue := defaultFrom
	if from != nil {
		fromValue = *from
	}
	untilValue := r.now().UTC()
	if until != nil {
		untilValue = *until
	}

	total, err := r.bags.CountInRange(fromValue, untilValue)
	if err != nil {
		return nil, "", err
	}
	if total == 0 {
		return nil, "", noRecordsMatch()
	}

	batch := r.cfg.OAI.BatchSize
	bags, err := r.bags.ListInRange(fromValue, untilValue, cursor, batch)
	if err != nil {
		return nil, "", err
	}
	if len(bags) == 0 {
		return nil, "", noRecordsMatch()
	}

	records := make([]Record, 0, len(bags))
	for i := range bags {
		infos, err := r.bags.InfoFields(bags[i].Name)
		if err != nil {
			return nil, "", err
		}
		record, err := r.makeRecord(&bags[i], infos, prefix)
		if err != nil {
			r.logger.Warn("Skipping record with unusable metadata",
				zap.String("name", bags[i].Name), zap.Error(err))
			continue
		}
		records = append(records, *record)
	}

	next := ""
	if int64(cursor+batch) < total {
		next = resumptionToken{
			Prefix: prefix,
			From:   fromValue,
			Until:  untilValue,
			Cursor: cursor + batch,
		}.Encode()
	}
	return records, next, nil
}

// makeRecord builds the harvest view of one bag. The header datestamp
// prefers the Bagging-Date info field over the stored column when the
// field parses.
func (r *Repository) makeRecord(bag *models.Bag, infos []models.BagInfo, prefix string) (*Record, error) {
	datestamp := bag.BaggingDate
	for _, info := range infos {
		if info.FieldName == "Bagging-Date" {
			if parsed, err := time.Parse(baggingDateLayout, info.FieldBody); err == nil {
				datestamp = parsed
			}
			break
		}
	}

	record := &Record{
		Header: Header{
			Identifier: ArkToInfo(bag.Name),
			Datestamp:  datestamp.UTC().Truncate(time.Second),
		},
	}
	switch prefix {
	case PrefixBag:
		record.Bag = bag
		record.Infos = infos
	default:
		dc, err := buildDublinCore(bag, infos)
		if err != nil {
			return nil, err
		}
		record.DC = dc
	}
	return record, nil
}

func buildDublinCore(bag *models.Bag, infos []models.BagInfo) (*DublinCore, error) {
	fields := make(map[string]string, len(infos))
	for _, info := range infos {
		fields[info.FieldName] = info.FieldBody
	}

	dc := &DublinCore{Identifiers: []string{bag.Name}}
	if value, ok := fields["External-Identifier"]; ok {
		dc.Identifiers = append(dc.Identifiers, value)
	}
	if value, ok := fields["Contact-Name"]; ok {
		dc.Creators = []string{value}
	}
	if value, ok := fields["External-Description"]; ok {
		dc.Descriptions = []string{value}
	}
	if value, ok := fields["Bagging-Date"]; ok {
		dc.Dates = []string{value}
	}
	if len(dc.Identifiers) == 0 && len(dc.Creators) == 0 &&
		len(dc.Descriptions) == 0 && len(dc.Dates) == 0 {
		return nil, ErrEmptyMetadata
	}
	return dc, nil
}
