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

type QueueHandler struct {
	queue  *services.QueueService
	cfg    *config.Configuration
	logger *zap.Logger
}

func NewQueueHandler(queue *services.QueueService, cfg *config.Configuration, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{
		queue:  queue,
		cfg:    cfg,
		logger: logger.With(zap.String("handler", "queue")),
	}
}

func (h *QueueHandler) Handle(c *gin.Context) {
	identifier := entryIdentifier(c)

	switch {
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

// entryLocation omits the collection path. Harvest clients have always
// been pointed at the bare ark under the host root.
func (h *QueueHandler) entryLocation(c *gin.Context, ark string) string {
	return webRoot(c) + "/" + ark + "/"
}

func (h *QueueHandler) wrap(c *gin.Context, entry *models.QueueEntry, author *atom.Author) (atom.Entry, error) {
	inner, err := bagxml.QueueEntryXML(entry)
	if err != nil {
		return atom.Entry{}, err
	}
	return atom.WrapEntry(inner, h.entryLocation(c, entry.Ark), entry.Ark, author, ""), nil
}

func (h *QueueHandler) getEntry(c *gin.Context, identifier string) {
	entry, err := h.queue.Get(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no queue entry for ark '%s'.\n", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to read queue entry.\n")
		return
	}
	wrapped, err := h.wrap(c, entry, feedAuthor(h.cfg))
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, wrapped)
}

func (h *QueueHandler) getFeed(c *gin.Context) {
	page, ok := feedPage(c, "page")
	if !ok {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	status := c.Query("status")
	sortBySize := c.Query("sort") == "size"

	total, err := h.queue.Count(status)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read queue.\n")
		return
	}
	paginator := atom.Paginator{Total: total, PerPage: h.cfg.Feeds.QueuePageSize}
	offset, limit, err := paginator.Window(page)
	if err != nil {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	entries, err := h.queue.List(status, sortBySize, offset, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read queue.\n")
		return
	}

	var feedEntries []atom.Entry
	for i := range entries {
		wrapped, err := h.wrap(c, &entries[i], nil)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to render feed.\n")
			return
		}
		feedEntries = append(feedEntries, wrapped)
	}

	feed := atom.MakeObjectFeed(feedEntries, "APP/queue", "Queue Entry Feed", webRoot(c),
		page, paginator.NumPages(), feedAuthor(h.cfg), "page")
	writeFeed(c, feed)
}

func (h *QueueHandler) post(c *gin.Context) {
	entry, ok := h.decode(c)
	if !ok {
		return
	}
	if err := h.queue.Enqueue(entry); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.String(http.StatusConflict, "Conflict with already-existing resource.\n")
			return
		}
		c.String(http.StatusInternalServerError, "Unable to create queue entry.\n")
		return
	}
	wrapped, err := h.wrap(c, entry, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	c.Header("Location", h.entryLocation(c, entry.Ark))
	writeEntry(c, http.StatusCreated, wrapped)
}

func (h *QueueHandler) put(c *gin.Context, identifier string) {
	entry, ok := h.decode(c)
	if !ok {
		return
	}
	updated, err := h.queue.Update(entry, identifier)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNameMismatch):
			c.String(http.StatusConflict,
				"The ark %s does not match the ark in the request URL %s.", entry.Ark, identifier)
		case errors.Is(err, services.ErrNotFound):
			c.String(http.StatusNotFound, "There is no queue entry for ark '%s'.\n", identifier)
		default:
			c.String(http.StatusInternalServerError, "Unable to update queue entry.\n")
		}
		return
	}
	wrapped, err := h.wrap(c, updated, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, wrapped)
}

func (h *QueueHandler) delete(c *gin.Context, identifier string) {
	if err := h.queue.Delete(identifier); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no Queue Entry for ark '%s'.\n", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to delete queue entry.\n")
		return
	}
	c.String(http.StatusOK, "Queue entry for ark %s deleted.\n", identifier)
}

func (h *QueueHandler) decode(c *gin.Context) (*models.QueueEntry, bool) {
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
	entry, err := bagxml.ParseQueueEntry(content)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, false
	}
	return entry, true
}

// Stats reports the queue total and its distribution over the harvest
// states.
func (h *QueueHandler) Stats(c *gin.Context) {
	total, err := h.queue.Count("")
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read queue.\n")
		return
	}
	counts, err := h.queue.StatusCounts()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read queue.\n")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totals":        total,
		"status_counts": counts,
	})
}
