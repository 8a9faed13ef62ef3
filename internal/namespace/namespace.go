// Package namespace maps tenant identities onto isolated path bundles.
package namespace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/sowilo/internal/apperr"
)

// Deployment modes.
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
)

var identityRe = regexp.MustCompile(`^[a-z0-9._-]{3,64}$`)

// Namespace is the resolved path bundle for one tenant. It is derived
// deterministically from the tenant identity and never persisted.
type Namespace struct {
	Tenant     string
	RawDir     string
	OutDir     string
	StatusPath string
	ConfigPath string
	ThemePath  string
	BasePath   string
}

// Resolver turns tenant identities into namespaces. In single mode every
// resolution collapses to one fixed bundle with an empty base path.
type Resolver struct {
	mode    string
	dataDir string
	outDir  string
}

// NewResolver creates a resolver rooted at dataDir/outDir.
func NewResolver(mode, dataDir, outDir string) *Resolver {
	return &Resolver{mode: mode, dataDir: dataDir, outDir: outDir}
}

// Multi reports whether the resolver runs in multi-tenant mode.
func (r *Resolver) Multi() bool { return r.mode == ModeMulti }

// OutRoot returns the shared output root shared by all tenants.
func (r *Resolver) OutRoot() string { return r.outDir }

// SanitizeIdentity lowercases and trims a tenant identity and rejects
// anything outside the bounded [a-z0-9._-]{3,64} alphabet. The bound is what
// keeps one tenant's namespace from escaping into another's.
func SanitizeIdentity(identity string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(identity))
	if !identityRe.MatchString(cleaned) {
		return "", fmt.Errorf("namespace: identity must be 3-64 chars of [a-z0-9._-]: %w", apperr.ErrValidation)
	}
	return cleaned, nil
}

// Resolve returns the namespace for a tenant. It is pure: no directories are
// created here, see Ensure.
func (r *Resolver) Resolve(tenant string) (Namespace, error) {
	if !r.Multi() {
		// Tenant collapses to the empty token so every caller shares one
		// lock for the one shared ledger.
		return Namespace{
			Tenant:     "",
			RawDir:     filepath.Join(r.dataDir, "notes"),
			OutDir:     r.outDir,
			StatusPath: filepath.Join(r.dataDir, "status.json"),
			ConfigPath: filepath.Join(r.dataDir, "config.yaml"),
			ThemePath:  filepath.Join(r.dataDir, "theme.yaml"),
			BasePath:   "",
		}, nil
	}
	id, err := SanitizeIdentity(tenant)
	if err != nil {
		return Namespace{}, err
	}
	base := filepath.Join(r.dataDir, "users", id)
	return Namespace{
		Tenant:     id,
		RawDir:     filepath.Join(base, "notes"),
		OutDir:     filepath.Join(r.outDir, id),
		StatusPath: filepath.Join(base, "status.json"),
		ConfigPath: filepath.Join(base, "config.yaml"),
		ThemePath:  filepath.Join(base, "theme.yaml"),
		BasePath:   "/" + id,
	}, nil
}

// Ensure idempotently creates the directories a namespace needs.
func Ensure(ns Namespace) error {
	for _, dir := range []string{filepath.Dir(ns.StatusPath), ns.RawDir, ns.OutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("namespace: ensure %s: %w", dir, err)
		}
	}
	return nil
}
