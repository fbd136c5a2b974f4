package bagxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/unt-libraries/coda/internal/db/models"
)

type nodeXMLOut struct {
	XMLName     xml.Name `xml:"node"`
	Name        string   `xml:"name"`
	Capacity    int64    `xml:"capacity"`
	Size        int64    `xml:"size"`
	Path        string   `xml:"path"`
	URL         string   `xml:"url"`
	LastChecked string   `xml:"last_checked"`
	Status      string   `xml:"status"`
}

func NodeXML(node *models.Node) ([]byte, error) {
	out := nodeXMLOut{
		Name:        node.NodeName,
		Capacity:    node.NodeCapacity,
		Size:        node.NodeSize,
		Path:        node.NodePath,
		URL:         node.NodeURL,
		LastChecked: node.LastChecked.Format(nodeTimeLayout),
		Status:      string(node.Status),
	}
	return xml.MarshalIndent(out, "", "  ")
}

type nodeXMLIn struct {
	XMLName  xml.Name `xml:"node"`
	Name     *string  `xml:"name"`
	Capacity *string  `xml:"capacity"`
	Size     *string  `xml:"size"`
	Path     *string  `xml:"path"`
	URL      *string  `xml:"url"`
	Status   *string  `xml:"status"`
}

// ParseNode decodes a node element. last_checked is never taken from the
// client; the caller stamps it on save.
func ParseNode(data []byte) (*models.Node, error) {
	var in nodeXMLIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unable to parse uploaded XML: %w", err)
	}

	node := &models.Node{}

	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, &FieldError{Field: "node_name"}
	}
	node.NodeName = strings.TrimSpace(*in.Name)

	if in.Capacity == nil {
		return nil, &FieldError{Field: "node_capacity"}
	}
	capacity, err := strconv.ParseInt(strings.TrimSpace(*in.Capacity), 10, 64)
	if err != nil {
		return nil, &FieldError{Field: "node_capacity"}
	}
	node.NodeCapacity = capacity

	if in.Size == nil {
		return nil, &FieldError{Field: "node_size"}
	}
	size, err := strconv.ParseInt(strings.TrimSpace(*in.Size), 10, 64)
	if err != nil {
		return nil, &FieldError{Field: "node_size"}
	}
	node.NodeSize = size

	if in.Path == nil {
		return nil, &FieldError{Field: "node_path"}
	}
	node.NodePath = strings.TrimSpace(*in.Path)

	if in.URL == nil {
		return nil, &FieldError{Field: "node_url"}
	}
	node.NodeURL = strings.TrimSpace(*in.URL)

	node.Status = models.NodeActive
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		node.Status = models.NodeStatus(strings.TrimSpace(*in.Status))
	}

	return node, nil
}
