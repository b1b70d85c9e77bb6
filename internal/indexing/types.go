// Package indexing runs the document pipeline: validate, fingerprint,
// reject duplicates, store the original, extract keywords, persist, and
// announce the change.
package indexing

import "github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"

// Upload is a raw file sent as a request body.
type Upload struct {
	Filename    string
	Title       string
	Description string
	ContentType string
	Data        []byte
}

// TextDocument is the JSON body accepted for inline text.
type TextDocument struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

// Receipt is returned once a document is indexed.
type Receipt struct {
	StorageKey string         `json:"storage_key"`
	Digest     string         `json:"digest"`
	Filename   string         `json:"filename"`
	DocType    string         `json:"doctype"`
	Size       int64          `json:"size"`
	Keywords   int            `json:"keywords"`
	Stats      keywords.Stats `json:"stats"`
	Took       string         `json:"took"`
}
