package mcp

import "encoding/json"

// SearchPublicationItem is one hit from the search_publications tool,
// mirroring the Cashmere publication schema.
type SearchPublicationItem struct {
	Content            string   `json:"content"`
	ViewSourceURL      string   `json:"view_source_url,omitempty"`
	Score              float64  `json:"score,omitempty"`
	OmnipubUUID        string   `json:"omnipub_uuid,omitempty"`
	OmnipubTitle       string   `json:"omnipub_title,omitempty"`
	SectionBlockUUID   string   `json:"section_block_uuid"`
	SectionLabel       string   `json:"section_label,omitempty"`
	OmnipubPublisher   string   `json:"omnipub_publisher,omitempty"`
	OmnipubCreators    []string `json:"omnipub_creators,omitempty"`
	OmnipubCoverImage  string   `json:"omnipub_cover_image,omitempty"`
	OmnipubExternalID  string   `json:"omnipub_external_id,omitempty"`
	OmnipubPublishedAt string   `json:"omnipub_published_at,omitempty"`
}

// decodeSearchItems parses the text payload of a search_publications result.
// The tool returns a JSON array of items; a single bare item is accepted for
// compatibility with older servers.
func decodeSearchItems(payload []byte) ([]SearchPublicationItem, error) {
	var items []SearchPublicationItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}

	var single SearchPublicationItem
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, &APIResponseError{Reason: "result text is neither an item array nor an item"}
	}
	return []SearchPublicationItem{single}, nil
}
