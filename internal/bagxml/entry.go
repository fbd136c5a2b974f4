package bagxml

import (
	"encoding/xml"
	"fmt"
)

type atomEntryIn struct {
	XMLName xml.Name `xml:"entry"`
	Content struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"content"`
}

// EntryContent digs the resource element out of an AtomPub entry body:
// entry > content > <resource>. The inner bytes are handed to the
// family-specific parser unchanged.
func EntryContent(data []byte) ([]byte, error) {
	var entry atomEntryIn
	if err := xml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unable to parse uploaded XML: %w", err)
	}
	if len(entry.Content.Inner) == 0 {
		return nil, fmt.Errorf("no content element located")
	}
	return entry.Content.Inner, nil
}
