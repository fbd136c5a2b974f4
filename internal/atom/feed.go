package atom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyPage reports a page request beyond the collection's bounds.
// AtomPub collection feeds surface this as a client error; the public
// feed clamps instead.
var ErrEmptyPage = errors.New("page number out of range")

// Paginator computes page windows over an ordered collection of Total
// records, PerPage at a time.
type Paginator struct {
	Total   int64
	PerPage int
}

// NumPages is at least 1: an empty collection still has one (empty) page.
func (p Paginator) NumPages() int {
	if p.Total == 0 {
		return 1
	}
	pages := int(p.Total / int64(p.PerPage))
	if p.Total%int64(p.PerPage) != 0 {
		pages++
	}
	return pages
}

// Window returns the record offset and limit for a page, or ErrEmptyPage
// when the page is out of range.
func (p Paginator) Window(page int) (offset, limit int, err error) {
	if page < 1 || page > p.NumPages() {
		return 0, 0, ErrEmptyPage
	}
	return (page - 1) * p.PerPage, p.PerPage, nil
}

// Clamp forces a page request into range instead of rejecting it.
func (p Paginator) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if n := p.NumPages(); page > n {
		return n
	}
	return page
}

type Feed struct {
	XMLName  xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	ID       string   `xml:"id"`
	Title    string   `xml:"title"`
	Subtitle string   `xml:"subtitle,omitempty"`
	Updated  string   `xml:"updated"`
	Author   *Author  `xml:"author,omitempty"`
	Links    []Link   `xml:"link"`
	Entries  []Entry  `xml:"entry"`
}

// MakeObjectFeed assembles a paginated collection feed. The feed id is
// webRoot + "/" + feedID; navigation links append pageParam ("page" for
// AtomPub collections, "p" for the public feed). first and last are
// always present; previous and next only when the neighbor page exists.
func MakeObjectFeed(entries []Entry, feedID, title, webRoot string, page, numPages int, author *Author, pageParam string) *Feed {
	id := webRoot + "/" + feedID

	feed := &Feed{
		ID:      id,
		Title:   title,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Author:  author,
		Entries: entries,
	}

	feed.Links = append(feed.Links,
		Link{Rel: "self", Href: id},
		Link{Rel: "first", Href: pageHref(id, pageParam, 1)},
		Link{Rel: "last", Href: pageHref(id, pageParam, numPages)},
	)
	if page > 1 {
		feed.Links = append(feed.Links, Link{Rel: "previous", Href: pageHref(id, pageParam, page-1)})
	}
	if page < numPages {
		feed.Links = append(feed.Links, Link{Rel: "next", Href: pageHref(id, pageParam, page+1)})
	}

	return feed
}

func pageHref(id, pageParam string, page int) string {
	return fmt.Sprintf("%s?%s=%d", id, pageParam, page)
}

// RenderFeed serializes a feed as a complete document with the XML
// declaration.
func RenderFeed(feed *Feed) ([]byte, error) {
	data, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(Header), data...), nil
}
