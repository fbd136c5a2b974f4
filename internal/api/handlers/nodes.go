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

type NodeHandler struct {
	nodes  *services.NodeService
	cfg    *config.Configuration
	logger *zap.Logger
}

func NewNodeHandler(nodes *services.NodeService, cfg *config.Configuration, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		nodes:  nodes,
		cfg:    cfg,
		logger: logger.With(zap.String("handler", "node")),
	}
}

func (h *NodeHandler) Handle(c *gin.Context) {
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

func (h *NodeHandler) entryLocation(c *gin.Context, name string) string {
	return webRoot(c) + "/APP/node/" + name + "/"
}

func (h *NodeHandler) wrap(c *gin.Context, node *models.Node, author *atom.Author) (atom.Entry, error) {
	inner, err := bagxml.NodeXML(node)
	if err != nil {
		return atom.Entry{}, err
	}
	return atom.WrapEntry(inner, h.entryLocation(c, node.NodeName), node.NodeName, author, ""), nil
}

func (h *NodeHandler) getEntry(c *gin.Context, identifier string) {
	node, err := h.nodes.Get(identifier)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no node with name '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to read node.\n")
		return
	}
	entry, err := h.wrap(c, node, feedAuthor(h.cfg))
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *NodeHandler) getFeed(c *gin.Context) {
	page, ok := feedPage(c, "page")
	if !ok {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	total, err := h.nodes.Count()
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read nodes.\n")
		return
	}
	paginator := atom.Paginator{Total: total, PerPage: h.cfg.Feeds.NodePageSize}
	offset, limit, err := paginator.Window(page)
	if err != nil {
		c.String(http.StatusBadRequest, "Page does not exist.")
		return
	}
	nodes, err := h.nodes.List(offset, limit)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to read nodes.\n")
		return
	}

	var entries []atom.Entry
	for i := range nodes {
		entry, err := h.wrap(c, &nodes[i], nil)
		if err != nil {
			c.String(http.StatusInternalServerError, "Unable to render feed.\n")
			return
		}
		entries = append(entries, entry)
	}

	feed := atom.MakeObjectFeed(entries, "APP/node", "Node Feed", webRoot(c),
		page, paginator.NumPages(), feedAuthor(h.cfg), "page")
	writeFeed(c, feed)
}

func (h *NodeHandler) post(c *gin.Context) {
	node, ok := h.decode(c)
	if !ok {
		return
	}
	if err := h.nodes.Create(node); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.String(http.StatusConflict, "Conflict with already-existing resource.\n")
			return
		}
		c.String(http.StatusInternalServerError, "Unable to create node.\n")
		return
	}
	entry, err := h.wrap(c, node, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	c.Header("Location", h.entryLocation(c, node.NodeName))
	writeEntry(c, http.StatusCreated, entry)
}

func (h *NodeHandler) put(c *gin.Context, identifier string) {
	node, ok := h.decode(c)
	if !ok {
		return
	}
	if node.NodeName != identifier {
		c.String(http.StatusBadRequest,
			"The node name '%s' does not match the request URL.", node.NodeName)
		return
	}
	updated, err := h.nodes.Update(node)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no node with name '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to update node.\n")
		return
	}
	entry, err := h.wrap(c, updated, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeEntry(c, http.StatusOK, entry)
}

func (h *NodeHandler) delete(c *gin.Context, identifier string) {
	if err := h.nodes.Delete(identifier); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "There is no node with name '%s'.", identifier)
			return
		}
		c.String(http.StatusInternalServerError, "Unable to delete node.\n")
		return
	}
	c.String(http.StatusOK, "Deleted '%s'.\n", identifier)
}

func (h *NodeHandler) decode(c *gin.Context) (*models.Node, bool) {
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
	node, err := bagxml.ParseNode(content)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return nil, false
	}
	return node, true
}
