package discord

import (
	"strconv"
	"strings"
)

// Embed is a Discord message embed. Empty fields are left out of the payload.
type Embed struct {
	Title        string
	URL          string
	Description  string
	Color        string // "#RRGGBB", "0xRRGGBB", "RRGGBB" or decimal; "" or "0" means none
	ThumbnailURL string
	ImageURL     string
	FooterText   string
	FooterIcon   string
	Timestamp    string // RFC 3339
}

type embedPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url,omitempty"`
	Color       *uint32        `json:"color,omitempty"`
	Thumbnail   *imagePayload  `json:"thumbnail,omitempty"`
	Image       *imagePayload  `json:"image,omitempty"`
	Footer      *footerPayload `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type imagePayload struct {
	URL string `json:"url"`
}

type footerPayload struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type messagePayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []embedPayload `json:"embeds,omitempty"`
}

func (e Embed) payload() embedPayload {
	p := embedPayload{
		Title:       e.Title,
		Description: e.Description,
		URL:         strings.TrimSpace(e.URL),
		Timestamp:   strings.TrimSpace(e.Timestamp),
	}

	if c, ok := ParseColor(e.Color); ok {
		p.Color = &c
	}
	if u := strings.TrimSpace(e.ThumbnailURL); u != "" {
		p.Thumbnail = &imagePayload{URL: u}
	}
	if u := strings.TrimSpace(e.ImageURL); u != "" {
		p.Image = &imagePayload{URL: u}
	}
	if strings.TrimSpace(e.FooterText) != "" || strings.TrimSpace(e.FooterIcon) != "" {
		p.Footer = &footerPayload{
			Text:    e.FooterText,
			IconURL: strings.TrimSpace(e.FooterIcon),
		}
	}

	return p
}

// ParseColor parses an embed color.
// All-digit strings are decimal; anything else is hex with an optional "#" or "0x" prefix.
// "" and "0" mean no color.
func ParseColor(s string) (uint32, bool) {
	t := strings.TrimSpace(s)
	if t == "" || t == "0" {
		return 0, false
	}

	base := 16
	if strings.Trim(t, "0123456789") == "" {
		base = 10
	} else {
		t = strings.TrimPrefix(t, "#")
		if len(t) > 2 && (t[:2] == "0x" || t[:2] == "0X") {
			t = t[2:]
		}
	}

	v, err := strconv.ParseUint(t, base, 32)
	if err != nil || v > 0xFFFFFF {
		return 0, false
	}
	return uint32(v), true
}
