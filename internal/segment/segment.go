// Package segment models the structured body of a chat message as an ordered
// list of typed segments: plain text, mentions, images, quote replies, and
// combined-forward nodes.
package segment

import (
	"fmt"
	"strings"
)

// Type discriminates the segment variants.
type Type string

const (
	TypeText    Type = "text"
	TypeMention Type = "mention"
	TypeImage   Type = "image"
	TypeReply   Type = "reply"
	TypeNode    Type = "node"
)

// Segment is one element of a structured message body. Which fields are
// meaningful depends on Type.
type Segment struct {
	Type Type `json:"type"`

	// Text carries the content of a text segment.
	Text string `json:"text,omitempty"`

	// Target is the identifier a mention segment points at.
	Target string `json:"target,omitempty"`

	// URL and File reference image content. URL is preferred; File is the
	// generic fallback accepted by transports without URL support.
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`

	// ID identifies the quoted message of a reply segment, or the combined
	// container of a node segment.
	ID       string `json:"id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`

	// UIN and Name label the author of a node segment.
	UIN  string `json:"uin,omitempty"`
	Name string `json:"name,omitempty"`

	// Chain nests content inside reply and node segments.
	Chain []Segment `json:"chain,omitempty"`
}

// Text builds a plain text segment.
func Text(text string) Segment {
	return Segment{Type: TypeText, Text: text}
}

// Mention builds a mention segment pointing at target.
func Mention(target string) (Segment, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Segment{}, fmt.Errorf("mention target is required")
	}
	return Segment{Type: TypeMention, Target: target}, nil
}

// ImageURL builds an image segment referencing an http(s) or data URL.
func ImageURL(url string) (Segment, error) {
	trimmed := strings.TrimSpace(url)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "data:") {
		return Segment{}, fmt.Errorf("not a URL reference: %s", trimmed)
	}
	return Segment{Type: TypeImage, URL: trimmed}, nil
}

// ImageFile builds an image segment from a generic file reference. It accepts
// anything and is the fallback when ImageURL rejects the reference.
func ImageFile(ref string) Segment {
	return Segment{Type: TypeImage, File: strings.TrimSpace(ref)}
}

// Reply builds a quote segment wrapping chain as the quoted content.
func Reply(id, senderID string, chain []Segment) Segment {
	return Segment{Type: TypeReply, ID: id, SenderID: senderID, Chain: chain}
}

// Node builds a combined-forward container attributed to uin/name.
func Node(id, uin, name string, chain []Segment) Segment {
	return Segment{Type: TypeNode, ID: id, UIN: uin, Name: name, Chain: chain}
}

// ImageRef returns the strongest available image reference: URL first, then
// the file reference. Empty for non-image segments.
func (s Segment) ImageRef() string {
	if s.Type != TypeImage {
		return ""
	}
	if strings.TrimSpace(s.URL) != "" {
		return strings.TrimSpace(s.URL)
	}
	return strings.TrimSpace(s.File)
}

// PlainText concatenates the text content of all text segments in chain.
func PlainText(chain []Segment) string {
	var b strings.Builder
	for _, seg := range chain {
		if seg.Type == TypeText {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
