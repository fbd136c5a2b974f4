package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unt-libraries/coda/internal/atom"
	"github.com/unt-libraries/coda/internal/config"
)

func atomNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// webRoot rebuilds the absolute root the way clients addressed us, for
// self links and Location headers.
func webRoot(c *gin.Context) string {
	return "http://" + c.Request.Host
}

func feedAuthor(cfg *config.Configuration) *atom.Author {
	if cfg.Site.AuthorName == "" && cfg.Site.AuthorURI == "" {
		return nil
	}
	return &atom.Author{Name: cfg.Site.AuthorName, URI: cfg.Site.AuthorURI}
}

// entryIdentifier trims the surrounding slashes from a wildcard route
// parameter. ARK names contain slashes, so the route matches everything
// under the collection and an empty result means the collection itself.
func entryIdentifier(c *gin.Context) string {
	return strings.Trim(c.Param("id"), "/")
}

// feedPage reads a page parameter, defaulting to 1. An unparsable value
// reports false and the caller answers 400.
func feedPage(c *gin.Context, param string) (int, bool) {
	raw := c.Query(param)
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return page, true
}

func writeAtom(c *gin.Context, status int, body []byte) {
	c.Data(status, atom.ContentType, body)
}

func writeEntry(c *gin.Context, status int, entry atom.Entry) {
	body, err := atom.RenderEntry(entry)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render entry.\n")
		return
	}
	writeAtom(c, status, body)
}

func writeFeed(c *gin.Context, feed *atom.Feed) {
	body, err := atom.RenderFeed(feed)
	if err != nil {
		c.String(http.StatusInternalServerError, "Unable to render feed.\n")
		return
	}
	writeAtom(c, http.StatusOK, body)
}

func methodNotAllowed(c *gin.Context, allow string) {
	c.Header("Allow", allow)
	c.String(http.StatusMethodNotAllowed, "Method not allowed.\n")
}

const (
	allowEntry      = "GET, PUT, DELETE"
	allowCollection = "GET, POST"
)
