package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/oai"
	"go.uber.org/zap"
)

type OAIHandler struct {
	repo   *oai.Repository
	logger *zap.Logger
}

func NewOAIHandler(repo *oai.Repository, logger *zap.Logger) *OAIHandler {
	return &OAIHandler{
		repo:   repo,
		logger: logger.With(zap.String("handler", "oai")),
	}
}

// Handle dispatches the six protocol verbs from the query string.
// Protocol failures render an <error> element inside a 200 response,
// as OAI-PMH requires.
func (h *OAIHandler) Handle(c *gin.Context) {
	req := oai.Request{
		Verb:            c.Query("verb"),
		Identifier:      c.Query("identifier"),
		MetadataPrefix:  c.Query("metadataPrefix"),
		From:            c.Query("from"),
		Until:           c.Query("until"),
		ResumptionToken: c.Query("resumptionToken"),
		BaseURL:         webRoot(c) + "/oai/",
	}
	resp := oai.NewResponse(req)

	if err := h.dispatch(req, resp); err != nil {
		var protocolErr *oai.Error
		if errors.As(err, &protocolErr) {
			resp.SetError(protocolErr)
		} else {
			h.logger.Error("Harvest request failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "Unable to answer harvest request.\n")
			return
		}
	}

	body, err := resp.Render()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render harvest response.\n")
		return
	}
	c.Data(http.StatusOK, oai.ContentType, body)
}

func (h *OAIHandler) dispatch(req oai.Request, resp *oai.Response) error {
	switch req.Verb {
	case "Identify":
		resp.SetIdentify(h.repo.Identify())
		return nil

	case "ListMetadataFormats":
		formats, err := h.repo.ListMetadataFormats(req.Identifier)
		if err != nil {
			return err
		}
		resp.SetListMetadataFormats(formats)
		return nil

	case "GetRecord":
		if req.Identifier == "" {
			return &oai.Error{Code: oai.CodeBadArgument, Message: "identifier is a required argument"}
		}
		if req.MetadataPrefix == "" {
			return &oai.Error{Code: oai.CodeBadArgument, Message: "metadataPrefix is a required argument"}
		}
		record, err := h.repo.GetRecord(req.MetadataPrefix, req.Identifier)
		if err != nil {
			return err
		}
		return resp.SetGetRecord(record)

	case "ListRecords":
		from, until, err := listArguments(req)
		if err != nil {
			return err
		}
		records, next, err := h.repo.ListRecords(req.MetadataPrefix, from, until, req.ResumptionToken)
		if err != nil {
			return err
		}
		return resp.SetListRecords(records, next)

	case "ListIdentifiers":
		from, until, err := listArguments(req)
		if err != nil {
			return err
		}
		headers, next, err := h.repo.ListIdentifiers(req.MetadataPrefix, from, until, req.ResumptionToken)
		if err != nil {
			return err
		}
		resp.SetListIdentifiers(headers, next)
		return nil

	case "ListSets":
		return h.repo.ListSets()

	case "":
		return &oai.Error{Code: oai.CodeBadVerb, Message: "the request carries no verb argument"}

	default:
		return &oai.Error{Code: oai.CodeBadVerb, Message: "the verb '" + req.Verb + "' is illegal"}
	}
}

// listArguments validates a list request's selective-harvest window.
// A resumption token replaces the other arguments entirely.
func listArguments(req oai.Request) (from, until *time.Time, err error) {
	if req.ResumptionToken != "" {
		return nil, nil, nil
	}
	if req.MetadataPrefix == "" {
		return nil, nil, &oai.Error{Code: oai.CodeBadArgument, Message: "metadataPrefix is a required argument"}
	}
	if req.From != "" {
		parsed, parseErr := parseUTCDatestamp(req.From)
		if parseErr != nil {
			return nil, nil, &oai.Error{Code: oai.CodeBadArgument, Message: "from argument is not a valid datestamp"}
		}
		from = &parsed
	}
	if req.Until != "" {
		parsed, parseErr := parseUTCDatestamp(req.Until)
		if parseErr != nil {
			return nil, nil, &oai.Error{Code: oai.CodeBadArgument, Message: "until argument is not a valid datestamp"}
		}
		until = &parsed
	}
	return from, until, nil
}

func parseUTCDatestamp(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z", value)
}
