// Package atom builds the Atom entry and feed documents used by the
// AtomPub protocol surfaces, including the paginated collection feeds
// with their first/last/previous/next navigation links.
package atom

import (
	"encoding/xml"
	"time"
)

const (
	Namespace = "http://www.w3.org/2005/Atom"

	// ContentType is the media type for entry and feed responses.
	ContentType = "application/atom+xml"

	// Header precedes every rendered document.
	Header = "<?xml version=\"1.0\"?>\n"
)

type Author struct {
	Name string `xml:"name,omitempty"`
	URI  string `xml:"uri,omitempty"`
}

type Link struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type Content struct {
	Type  string `xml:"type,attr"`
	Inner []byte `xml:",innerxml"`
}

type Entry struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom entry"`
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Updated string   `xml:"updated"`
	Author  *Author  `xml:"author,omitempty"`
	Links   []Link   `xml:"link"`
	Summary string   `xml:"summary,omitempty"`
	Content *Content `xml:"content,omitempty"`
}

// WrapEntry wraps an XML resource element in an Atom entry. altLink may
// be empty; author may be nil.
func WrapEntry(inner []byte, id, title string, author *Author, altLink string) Entry {
	entry := Entry{
		ID:      id,
		Title:   title,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Author:  author,
	}
	if altLink != "" {
		entry.Links = append(entry.Links, Link{Rel: "alternate", Href: altLink})
	}
	if len(inner) > 0 {
		entry.Content = &Content{Type: "application/xml", Inner: inner}
	}
	return entry
}

// RenderEntry serializes a single entry as a complete document with the
// XML declaration.
func RenderEntry(entry Entry) ([]byte, error) {
	data, err := xml.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(Header), data...), nil
}
