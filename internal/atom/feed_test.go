package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatorNumPages(t *testing.T) {
	assert.Equal(t, 1, Paginator{Total: 0, PerPage: 20}.NumPages())
	assert.Equal(t, 1, Paginator{Total: 20, PerPage: 20}.NumPages())
	assert.Equal(t, 2, Paginator{Total: 21, PerPage: 20}.NumPages())
	assert.Equal(t, 5, Paginator{Total: 100, PerPage: 20}.NumPages())
}

func TestPaginatorWindow(t *testing.T) {
	p := Paginator{Total: 45, PerPage: 20}

	offset, limit, err := p.Window(1)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)

	offset, _, err = p.Window(3)
	require.NoError(t, err)
	assert.Equal(t, 40, offset)

	_, _, err = p.Window(0)
	assert.ErrorIs(t, err, ErrEmptyPage)

	_, _, err = p.Window(4)
	assert.ErrorIs(t, err, ErrEmptyPage)
}

func TestPaginatorClamp(t *testing.T) {
	p := Paginator{Total: 45, PerPage: 20}
	assert.Equal(t, 1, p.Clamp(-3))
	assert.Equal(t, 2, p.Clamp(2))
	assert.Equal(t, 3, p.Clamp(99))
}

func linkByRel(t *testing.T, feed *Feed, rel string) (Link, bool) {
	t.Helper()
	for _, link := range feed.Links {
		if link.Rel == rel {
			return link, true
		}
	}
	return Link{}, false
}

func TestMakeObjectFeedMiddlePage(t *testing.T) {
	feed := MakeObjectFeed(nil, "APP/bag", "Bag Feed", "http://example.com", 2, 4, nil, "page")

	assert.Equal(t, "http://example.com/APP/bag", feed.ID)
	assert.Equal(t, "Bag Feed", feed.Title)

	selfLink, ok := linkByRel(t, feed, "self")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/APP/bag", selfLink.Href)

	first, ok := linkByRel(t, feed, "first")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/APP/bag?page=1", first.Href)

	last, ok := linkByRel(t, feed, "last")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/APP/bag?page=4", last.Href)

	previous, ok := linkByRel(t, feed, "previous")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/APP/bag?page=1", previous.Href)

	next, ok := linkByRel(t, feed, "next")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/APP/bag?page=3", next.Href)
}

func TestMakeObjectFeedBoundaryPages(t *testing.T) {
	feed := MakeObjectFeed(nil, "APP/bag", "Bag Feed", "http://example.com", 1, 3, nil, "page")
	_, ok := linkByRel(t, feed, "previous")
	assert.False(t, ok)
	_, ok = linkByRel(t, feed, "next")
	assert.True(t, ok)

	feed = MakeObjectFeed(nil, "APP/bag", "Bag Feed", "http://example.com", 3, 3, nil, "page")
	_, ok = linkByRel(t, feed, "previous")
	assert.True(t, ok)
	_, ok = linkByRel(t, feed, "next")
	assert.False(t, ok)

	feed = MakeObjectFeed(nil, "APP/bag", "Bag Feed", "http://example.com", 1, 1, nil, "page")
	_, ok = linkByRel(t, feed, "previous")
	assert.False(t, ok)
	_, ok = linkByRel(t, feed, "next")
	assert.False(t, ok)
}

func TestMakeObjectFeedPageParam(t *testing.T) {
	feed := MakeObjectFeed(nil, "feed", "Recent Bags", "http://example.com", 1, 2, nil, "p")
	next, ok := linkByRel(t, feed, "next")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/feed?p=2", next.Href)
}

func TestRenderFeedDeclaration(t *testing.T) {
	feed := MakeObjectFeed(nil, "APP/bag", "Bag Feed", "http://example.com", 1, 1, nil, "page")
	out, err := RenderFeed(feed)
	require.NoError(t, err)
	assert.Contains(t, string(out), Header)
	assert.Contains(t, string(out), `xmlns="http://www.w3.org/2005/Atom"`)
}

func TestWrapEntry(t *testing.T) {
	entry := WrapEntry([]byte("<node><name>coda-001</name></node>"),
		"http://example.com/APP/node/coda-001/", "coda-001",
		&Author{Name: "Coda"}, "")

	require.NotNil(t, entry.Content)
	assert.Equal(t, "application/xml", entry.Content.Type)
	assert.Equal(t, "http://example.com/APP/node/coda-001/", entry.ID)

	out, err := RenderEntry(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<name>coda-001</name>")
}
