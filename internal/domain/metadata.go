package domain

import (
	"encoding/json"
	"fmt"
)

// MetadataDocument is the JSON document anchored on the ledger. Its hex-encoded
// serialization is the payload of the anchor transaction, and the anchor
// transaction's hash becomes the token URI.
type MetadataDocument struct {
	Name        TokenID         `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Properties  json.RawMessage `json:"properties"`
}

// NewMetadataDocument assembles the document for a tweet. The description
// format matches the one embedded in every anchored token, so it is part of
// the on-ledger schema and must not change.
func NewMetadataDocument(id TokenID, username, body, image string) (*MetadataDocument, error) {
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("tweet body is not valid JSON")
	}
	return &MetadataDocument{
		Name:        id,
		Description: fmt.Sprintf("A timestamped tweet by @%s – https://twitter.com/%s/status/%d.", username, username, id),
		Image:       image,
		Properties:  json.RawMessage(body),
	}, nil
}

// Encode serializes the document to its canonical JSON form.
func (d *MetadataDocument) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeMetadataDocument parses a document from its JSON serialization.
func DecodeMetadataDocument(data []byte) (*MetadataDocument, error) {
	var d MetadataDocument
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &d, nil
}
