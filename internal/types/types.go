// Package types provides domain models shared across shelfkeeper components.
//
// Book mirrors the book-metadata contract owned by the surrounding library
// application. Optional numeric and boolean attributes are pointers so that
// "absent" survives the trip to and from the catalog database as NULL.
package types

import (
	"encoding/json"
	"time"
)

// ShelfID represents a UUIDv7 shelf identifier.
// String alias enables type safety while maintaining JSON string serialization.
type ShelfID string

// Book is one record of the library catalog as seen by the rule engine.
type Book struct {
	ID        int64 `json:"id"`
	LibraryID int64 `json:"libraryId"`

	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Language    string `json:"language,omitempty"`
	ISBN10      string `json:"isbn10,omitempty"`
	ISBN13      string `json:"isbn13,omitempty"`
	SeriesName  string `json:"seriesName,omitempty"`

	Authors    []string `json:"authors,omitempty"`
	Categories []string `json:"categories,omitempty"`

	// Dates are YYYY-MM-DD or RFC3339 strings; unparsable values read as absent.
	PublishedDate string `json:"publishedDate,omitempty"`
	AddedOn       string `json:"addedOn,omitempty"`
	LastReadTime  string `json:"lastReadTime,omitempty"`
	DateFinished  string `json:"dateFinished,omitempty"`

	Rating         *float64 `json:"rating,omitempty"`
	PersonalRating *float64 `json:"personalRating,omitempty"`
	SeriesNumber   *float64 `json:"seriesNumber,omitempty"`
	PageCount      *int     `json:"pageCount,omitempty"`
	SeriesTotal    *int     `json:"seriesTotal,omitempty"`
	FileSizeKb     *int     `json:"fileSizeKb,omitempty"`

	ReadStatus string `json:"readStatus,omitempty"`
	FileType   string `json:"fileType,omitempty"`
	IsPhysical *bool  `json:"isPhysical,omitempty"`
}

// Shelf is a named, persisted rule tree ("Magic Shelf").
// Filter holds the rule tree JSON verbatim; it is opaque to the store.
type Shelf struct {
	ID        ShelfID         `json:"id"`
	Name      string          `json:"name"`
	Filter    json.RawMessage `json:"filter"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Resource limits enforced when validating rule trees built by a client.
// Persisted trees exceeding them are still evaluated best-effort.
const (
	// MaxTreeDepth bounds group nesting; filter builders stay in single digits.
	MaxTreeDepth = 16

	// MaxListValues bounds the comma-separated operand of in_list/not_in_list.
	MaxListValues = 64

	// MaxShelfNameLength bounds shelf names shown in the library sidebar.
	MaxShelfNameLength = 128
)
