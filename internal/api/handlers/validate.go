package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/atom"
	"github.com/unt-libraries/coda/internal/bagxml"
	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/internal/services"
	"go.uber.org/zap"
)

type ValidateHandler struct {
	validates *services.ValidateService
	cfg       *config.Configuration
	logger    *zap.Logger
}

func NewValidateHandler(validates *services.ValidateService, cfg *config.Configuration, logger *zap.Logger) *ValidateHandler {
	return &ValidateHandler{
		validates: validates,
		cfg:       cfg,
		logger:    logger.With(zap.String("handler", "validate")),
	}
}

func (h *ValidateHandler) Handle(c *gin.Context) {
	identifier := entryIdentifier(c)

	switch {
	case c.Request.Method == http.MethodHead:
		c.Data(http.StatusOK, atom.ContentType, nil)
	case c.Request.Method == http.MethodGet && identifier != "":
		h.getEntry(c, identifier)
	case c.Request.Method == http.MethodGet:
		h.getFeed(c)
	case c.Request.Method == http.MethodPost && identifier == "":
		h.post(c)
	case c.Request.Method == http.MethodPut && identifier != "":
		h.put(c, identifier)
	case c.Request.Method == http.MethodDelete && identifier != "":
		h.delete(c, identifier)
	default:
		if identifier != "" {
			methodNotAllowed(c, allowEntry)
		} else {
			methodNotAllowed(c, allowCollection)
		}
	}
}

func (h *ValidateHandler) entryLocation(c *gin.Context, identifier string) string {
	return webRoot(c) + "/APP/validate/" + identifier + "/"
}

func (h *ValidateHandler) wrap(c *gin.Context, record *models.Validate, author *atom.Author) (atom.Entry, error) {
	inner, err := bagxml.ValidateXML(record)
	if err != nil {
		return atom.Entry{}, err
	}
	return atom.WrapEntry(inner, h.entryLocation(c, record.Identifier), record.Identifier, author, ""), nil
}

func (h *ValidateHandler) getEntry(c *gin.Context, identifier string) {
	record, err := h.validates.Get(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no validate for identifier %s.\n", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to read validation record.\n")
		return
	}
	entry, err := h.wrap(c, record, feedAuthor(h.cfg))
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *ValidateHandler) getFeed(c *gin.Context) {
	page, ok := feedPage(c, "page")
	if !ok {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	total, err := h.validates.Count()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read validation records.\n")
		return
	}
	paginator := atom.Paginator{Total: total, PerPage: h.cfg.Feeds.ValidatePageSize}
	offset, limit, err := paginator.Window(page)
	if err != nil {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	records, err := h.validates.List(offset, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read validation records.\n")
		return
	}

	var entries []atom.Entry
	for i := range records {
		entry, err := h.wrap(c, &records[i], nil)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to render feed.\n")
			return
		}
		entries = append(entries, entry)
	}

	feed := atom.MakeObjectFeed(entries, "APP/validate", "validate Entry Feed", webRoot(c),
		page, paginator.NumPages(), feedAuthor(h.cfg), "page")
	writeFeed(c, feed)
}

func (h *ValidateHandler) post(c *gin.Context) {
	record, ok := h.decode(c)
	if !ok {
		return
	}
	if err := h.validates.Create(record); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.String(http.StatusConflict, "Conflict with already-existing resource.\n")
			return
		}
		c.String(http.StatusInternalServerError, "Unable to create validation record.\n")
		return
	}
	entry, err := h.wrap(c, record, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	c.Header("Location", h.entryLocation(c, record.Identifier))
	writeEntry(c, http.StatusCreated, entry)
}

func (h *ValidateHandler) put(c *gin.Context, identifier string) {
	record, ok := h.decode(c)
	if !ok {
		return
	}
	updated, err := h.validates.Update(record, identifier)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNameMismatch):
			c.String(http.StatusBadRequest,
				"The identifier '%s' does not match the request URL.", record.Identifier)
		case errors.Is(err, services.ErrNotFound):
			c.String(http.StatusNotFound, "There is no validate for identifier %s.\n", identifier)
		default:
			c.String(http.StatusInternalServerError, "Unable to update validation record.\n")
		}
		return
	}
	entry, err := h.wrap(c, updated, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

// delete answers with the deleted record's entry so callers keep a last
// copy of what was removed.
func (h *ValidateHandler) delete(c *gin.Context, identifier string) {
	record, err := h.validates.Get(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "Unable to Delete. There is no identifier %s.\n", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to delete validation record.\n")
		return
	}
	entry, err := h.wrap(c, record, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	if err := h.validates.Delete(identifier); err != nil {
		c.String(http.StatusInternalServerError, "Unable to delete validation record.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *ValidateHandler) decode(c *gin.Context) (*models.Validate, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Unable to read request body.\n")
		return nil, false
	}
	content, err := bagxml.EntryContent(body)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, false
	}
	record, err := bagxml.ParseValidate(content)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, false
	}
	return record, true
}

// Next renders the selector's pick as a one-entry feed whose entry
// summary carries the selection reason. An empty store yields an empty
// feed rather than an error.
func (h *ValidateHandler) Next(c *gin.Context) {
	server := entryIdentifier(c)

	feed := &atom.Feed{
		ID:       webRoot(c) + "/validate/next/",
		Title:    h.cfg.Site.Name,
		Subtitle: "The highest priority validation item",
		Updated:  atomNow(),
		Author:   feedAuthor(h.cfg),
	}

	record, reason, err := h.validates.Next(server)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		c.String(http.StatusInternalServerError, "Unable to select validation record.\n")
		return
	}
	if record != nil {
		entry := atom.WrapEntry(nil, record.Identifier, record.Identifier, nil,
			"/APP/validate/"+record.Identifier+"/")
		entry.Summary = reason
		feed.Entries = []atom.Entry{entry}
	}
	writeFeed(c, feed)
}

// PrioritizeJSON bumps a record's priority from a query parameter and
// reports the outcome as JSON.
func (h *ValidateHandler) PrioritizeJSON(c *gin.Context) {
	identifier := c.Query("identifier")
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":               "failure",
			"response":             "missing identifier parameter",
			"requested_identifier": "",
		})
		return
	}
	record, err := h.validates.Prioritize(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status":               "failure",
				"response":             "identifier was not found",
				"requested_identifier": identifier,
			})
			return
		}
		c.String(http.StatusInternalServerError, "Unable to prioritize.\n")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":               "success",
		"requested_identifier": identifier,
		"priority":             record.Priority,
		"priority_change_date": record.PriorityChangeDate.String(),
		"atom_pub_url":         h.cfg.Site.Domain + "/APP/validate/" + record.Identifier,
	})
}

// CheckJSON reports record counts per verification status.
func (h *ValidateHandler) CheckJSON(c *gin.Context) {
	counts, err := h.validates.StatusCounts()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read validation records.\n")
		return
	}
	c.JSON(http.StatusOK, counts)
}
