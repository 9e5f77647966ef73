package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/maruel/ksid"

	"github.com/notefs/notefs/internal/vfs"
)

// vaultKey is the fixed key the persisted vault document lives under.
const vaultKey = "notefs.vault"

// DocumentVersion is the current persisted document format. Version 1 was a
// bare JSON array of items with no envelope.
const DocumentVersion = 2

// Document is the persisted-mode serialization of the whole vault: every
// item, with asset bytes inlined as data URIs, plus the bits of view state
// that survive a restart.
type Document struct {
	Version       int         `json:"version" jsonschema:"description=Document format version"`
	Items         []*vfs.Item `json:"items" jsonschema:"description=Every item of the vault"`
	ActiveID      ksid.ID     `json:"active_id,omitempty" jsonschema:"description=Currently selected item"`
	SidebarHidden bool        `json:"sidebar_hidden,omitempty" jsonschema:"description=Tree sidebar visibility toggle"`
}

// DecodeDocument parses a persisted document, accepting the legacy bare
// array format and upgrading it in place.
func DecodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []*vfs.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse legacy document: %w", err)
		}
		return &Document{Version: DocumentVersion, Items: items}, nil
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("document version %d is newer than supported %d", doc.Version, DocumentVersion)
	}
	doc.Version = DocumentVersion
	return doc, nil
}

// Encode serializes the document.
func (d *Document) Encode() ([]byte, error) {
	d.Version = DocumentVersion
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// DocumentSchema returns the JSON schema of the persisted document format.
func DocumentSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: false}
	return r.Reflect(&Document{})
}

// EncodeDataURI inlines asset bytes for the persisted document.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI recovers the MIME type and bytes of an inlined asset.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("unsupported data URI encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return mimeType, data, nil
}
