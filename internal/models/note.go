// Package models defines the domain types for Sowilo.
package models

import "time"

// Note is one content unit keyed by its tenant-relative path. Exactly one of
// Content or the Ciphertext/IV/Salt bundle is populated, never both.
type Note struct {
	RelativePath string   `json:"relativePath"`
	Content      string   `json:"content,omitempty"`
	Encrypted    bool     `json:"encrypted,omitempty"`
	Ciphertext   string   `json:"ciphertext,omitempty"`
	IV           string   `json:"iv,omitempty"`
	Salt         string   `json:"salt,omitempty"`
	Meta         NoteMeta `json:"meta,omitempty"`
	Hash         string   `json:"hash"`
	Mtime        int64    `json:"mtime"`
	Title        string   `json:"title,omitempty"`
}

// NoteMeta carries the non-secret metadata of an encrypted note.
type NoteMeta struct {
	Author   string `json:"author,omitempty"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
}

// StatusRecord is one ledger entry: the published fingerprint of a path.
type StatusRecord struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Ledger maps tenant-relative note paths to their published status.
type Ledger map[string]StatusRecord

// RenderedNote is the transient build artifact consumed by the listing page,
// the manifest, and the status tracker.
type RenderedNote struct {
	RelativePath string    `json:"relativePath"`
	URL          string    `json:"url"`
	Hash         string    `json:"hash"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Tags         []string  `json:"tags,omitempty"`
	Author       string    `json:"author,omitempty"`
	Category     string    `json:"category,omitempty"`
	Date         time.Time `json:"date"`
	Encrypted    bool      `json:"encrypted,omitempty"`
}

// NavEntry is one navigation link in a tenant's site header.
type NavEntry struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// SiteConfig is the per-tenant site metadata, loaded fresh per build.
type SiteConfig struct {
	SiteTitle   string     `yaml:"siteTitle" json:"siteTitle"`
	Description string     `yaml:"description" json:"description"`
	Author      string     `yaml:"author" json:"author"`
	Footer      string     `yaml:"footer" json:"footer"`
	Nav         []NavEntry `yaml:"nav" json:"nav"`
	Theme       string     `yaml:"theme" json:"theme"`
}

// Status classifies a local note against the ledger.
type Status string

// Status values consumed by callers; never persisted.
const (
	StatusPublished   Status = "published"
	StatusPending     Status = "pending"
	StatusUnpublished Status = "unpublished"
)
