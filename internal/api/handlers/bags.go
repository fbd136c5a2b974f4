package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/atom"
	"github.com/unt-libraries/coda/internal/bagxml"
	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/internal/services"
	"go.uber.org/zap"
)

type BagHandler struct {
	bags   *services.BagService
	cfg    *config.Configuration
	logger *zap.Logger
}

func NewBagHandler(bags *services.BagService, cfg *config.Configuration, logger *zap.Logger) *BagHandler {
	return &BagHandler{
		bags:   bags,
		cfg:    cfg,
		logger: logger.With(zap.String("handler", "bag")),
	}
}

// Handle dispatches the AtomPub verbs for the bag collection and its
// entries. The route is a wildcard because bag names are ARKs with
// embedded slashes.
func (h *BagHandler) Handle(c *gin.Context) {
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

func (h *BagHandler) entryLocation(c *gin.Context, name string) string {
	return webRoot(c) + "/APP/bag/" + name + "/"
}

func (h *BagHandler) wrap(c *gin.Context, bag *models.Bag, infos []models.BagInfo, author *atom.Author) (atom.Entry, error) {
	inner, err := bagxml.BagXML(bag, infos)
	if err != nil {
		return atom.Entry{}, err
	}
	return atom.WrapEntry(inner, h.entryLocation(c, bag.Name), bag.Name, author, ""), nil
}

func (h *BagHandler) getEntry(c *gin.Context, identifier string) {
	bag, infos, err := h.bags.Get(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no bag with id '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to read bag.\n")
		return
	}
	entry, err := h.wrap(c, bag, infos, feedAuthor(h.cfg))
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *BagHandler) getFeed(c *gin.Context) {
	page, ok := feedPage(c, "page")
	if !ok {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	total, err := h.bags.Count()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read bags.\n")
		return
	}
	paginator := atom.Paginator{Total: total, PerPage: h.cfg.Feeds.BagPageSize}
	offset, limit, err := paginator.Window(page)
	if err != nil {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	bags, err := h.bags.List(offset, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read bags.\n")
		return
	}

	var entries []atom.Entry
	for i := range bags {
		infos, err := h.bags.InfoFields(bags[i].Name)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to read bags.\n")
			return
		}
		entry, err := h.wrap(c, &bags[i], infos, nil)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to render feed.\n")
			return
		}
		entries = append(entries, entry)
	}

	feed := atom.MakeObjectFeed(entries, "APP/bag", "Bag Feed", webRoot(c),
		page, paginator.NumPages(), feedAuthor(h.cfg), "page")
	writeFeed(c, feed)
}

func (h *BagHandler) post(c *gin.Context) {
	bag, infos, extIDs, ok := h.decode(c)
	if !ok {
		return
	}
	if err := h.bags.Create(bag, infos, extIDs); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.String(http.StatusConflict, "Conflict with already-existing resource.\n")
			return
		}
		c.String(http.StatusInternalServerError, "Unable to create bag.\n")
		return
	}
	entry, err := h.wrap(c, bag, infos, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	c.Header("Location", h.entryLocation(c, bag.Name))
	writeEntry(c, http.StatusCreated, entry)
}

func (h *BagHandler) put(c *gin.Context, identifier string) {
	bag, infos, extIDs, ok := h.decode(c)
	if !ok {
		return
	}
	if bag.Name != identifier {
		c.String(http.StatusBadRequest,
			"The bag name '%s' does not match the request URL.", bag.Name)
		return
	}
	if err := h.bags.Replace(bag, infos, extIDs); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no bag with id '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to update bag.\n")
		return
	}
	entry, err := h.wrap(c, bag, infos, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *BagHandler) delete(c *gin.Context, identifier string) {
	if err := h.bags.Delete(identifier); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no bag with id '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to delete bag.\n")
		return
	}
	c.String(http.StatusOK, "Deleted %s.\n", identifier)
}

func (h *BagHandler) decode(c *gin.Context) (*models.Bag, []models.BagInfo, []models.ExternalIdentifier, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Unable to read request body.\n")
		return nil, nil, nil, false
	}
	content, err := bagxml.EntryContent(body)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, nil, nil, false
	}
	bag, infos, extIDs, err := bagxml.ParseBag(content)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, nil, nil, false
	}
	return bag, infos, extIDs, true
}

// PublicFeed is the anonymous recent-bags feed. Unlike the protocol
// collection it clamps an out-of-range page instead of rejecting it,
// and it paginates on "p".
func (h *BagHandler) PublicFeed(c *gin.Context) {
	page, ok := feedPage(c, "p")
	if !ok {
		page = 1
	}
	total, err := h.bags.Count()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read bags.\n")
		return
	}
	paginator := atom.Paginator{Total: total, PerPage: h.cfg.Feeds.PublicPageSize}
	page = paginator.Clamp(page)
	offset, limit, err := paginator.Window(page)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read bags.\n")
		return
	}
	bags, err := h.bags.List(offset, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read bags.\n")
		return
	}

	var entries []atom.Entry
	for i := range bags {
		infos, err := h.bags.InfoFields(bags[i].Name)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to read bags.\n")
			return
		}
		var lines []string
		for _, info := range infos {
			lines = append(lines, info.FieldName+": "+info.FieldBody)
		}
		title := "/bag/" + bags[i].Name + "/"
		entry := atom.WrapEntry(nil, webRoot(c)+title, title, nil, title)
		entry.Summary = strings.Join(lines, "\n")
		entries = append(entries, entry)
	}

	feed := atom.MakeObjectFeed(entries, "feed", h.cfg.Site.Name, webRoot(c),
		page, paginator.NumPages(), feedAuthor(h.cfg), "p")
	feed.Subtitle = "Recent Bags"
	writeFeed(c, feed)
}

// ExternalIdentifierJSON resolves an external-identifier value to the
// bags that carry it. Bare values get the standard ARK shoulder
// prepended, matching how clients have always queried this endpoint.
func (h *BagHandler) ExternalIdentifierJSON(c *gin.Context) {
	ark := c.Query("ark")
	if !strings.Contains(ark, "ark:/67531") {
		ark = "ark:/67531/" + ark
	}
	refs, err := h.bags.ExternalLookup(ark)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to search identifiers.\n")
		return
	}
	results := make([]gin.H, 0, len(refs))
	for _, ref := range refs {
		results = append(results, gin.H{
			"name":         ref.Name,
			"oxum":         ref.Oxum(),
			"bagging_date": ref.BaggingDate.Format("2006-01-02"),
		})
	}
	c.JSON(http.StatusOK, results)
}
