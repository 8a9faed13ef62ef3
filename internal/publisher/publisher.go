// Package publisher coordinates the publish pipeline: it persists incoming
// note batches, rebuilds the tenant's site, and advances the status ledger.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/namespace"
	"github.com/starford/sowilo/internal/site"
	"github.com/starford/sowilo/internal/status"
	"github.com/starford/sowilo/internal/storage"
)

// PublishRequest is one publish batch for a tenant. Tenant is ignored in
// single-tenant mode. A batch with no notes, removals, config, or theme is
// invalid.
type PublishRequest struct {
	Tenant     string
	Notes      []models.Note
	Removed    []string
	ConfigText string
	Theme      string
}

// PublishResult reports what a publish produced.
type PublishResult struct {
	Tenant   string                `json:"tenant,omitempty"`
	Notes    []models.RenderedNote `json:"notes"`
	Removed  []string              `json:"removed,omitempty"`
	Ledger   models.Ledger         `json:"status"`
	BuiltAt  time.Time             `json:"builtAt"`
	SiteRoot string                `json:"siteRoot"`
}

// Service runs publishes, removals, and rebuilds. Operations on the same
// tenant are serialized; distinct tenants proceed concurrently.
type Service struct {
	log      *slog.Logger
	resolver *namespace.Resolver
	builder  *site.Builder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(log *slog.Logger, resolver *namespace.Resolver, builder *site.Builder) *Service {
	return &Service{
		log:      log,
		resolver: resolver,
		builder:  builder,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) tenantLock(tenant string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[tenant]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tenant] = lock
	}
	return lock
}

func normalizePath(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	return strings.TrimPrefix(path.Clean(rel), "./")
}

func checkRelPath(value any) error {
	rel, _ := value.(string)
	if strings.HasPrefix(rel, "/") {
		return fmt.Errorf("path must be relative")
	}
	clean := normalizePath(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path escapes the note root")
	}
	if !storage.IsNotePath(clean) {
		return fmt.Errorf("unsupported note extension")
	}
	return nil
}

func validateNote(n models.Note) error {
	if err := validation.ValidateStruct(&n,
		validation.Field(&n.RelativePath, validation.Required, validation.By(checkRelPath)),
	); err != nil {
		return err
	}
	if n.Encrypted {
		if n.Content != "" {
			return fmt.Errorf("%s: encrypted note must not carry plaintext", n.RelativePath)
		}
		if n.Ciphertext == "" || n.IV == "" || n.Salt == "" {
			return fmt.Errorf("%s: encrypted note missing ciphertext bundle", n.RelativePath)
		}
		return nil
	}
	if n.Ciphertext != "" || n.IV != "" || n.Salt != "" {
		return fmt.Errorf("%s: plain note must not carry a ciphertext bundle", n.RelativePath)
	}
	return nil
}

func (s *Service) namespaceFor(tenant string) (namespace.Namespace, error) {
	ns, err := s.resolver.Resolve(tenant)
	if err != nil {
		return namespace.Namespace{}, err
	}
	return ns, namespace.Ensure(ns)
}

// encSidecar is the on-disk form of an encrypted note, stored next to where
// the plaintext file would live.
type encSidecar struct {
	Ciphertext string          `json:"ciphertext"`
	IV         string          `json:"iv"`
	Salt       string          `json:"salt"`
	Hash       string          `json:"hash,omitempty"`
	Meta       models.NoteMeta `json:"meta,omitempty"`
	Mtime      int64           `json:"mtime,omitempty"`
}

// Publish persists the batch, rebuilds the site, and saves the ledger. The
// ledger write happens last so a failed build never marks notes published.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	incoming := make([]models.Note, 0, len(req.Notes))
	for _, n := range req.Notes {
		if storage.IsHidden(normalizePath(n.RelativePath)) {
			s.log.Debug("skipping hidden note", slog.String("path", n.RelativePath))
			continue
		}
		if err := validateNote(n); err != nil {
			return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
		}
		n.RelativePath = normalizePath(n.RelativePath)
		incoming = append(incoming, n)
	}
	// Hidden paths are filtered before this check: a batch of only hidden
	// notes is as empty as no batch at all.
	if len(incoming) == 0 && len(req.Removed) == 0 && req.ConfigText == "" && req.Theme == "" {
		return nil, fmt.Errorf("%w: empty publish batch", apperr.ErrValidation)
	}

	ns, err := s.namespaceFor(req.Tenant)
	if err != nil {
		return nil, err
	}
	lock := s.tenantLock(ns.Tenant)
	lock.Lock()
	defer lock.Unlock()

	if req.Theme != "" {
		if _, err := site.SaveTheme(ns.ThemePath, req.Theme); err != nil {
			return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
		}
	}
	if req.ConfigText != "" {
		if err := site.SaveSiteConfig(ns.ConfigPath, req.ConfigText); err != nil {
			return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
		}
	}

	store, err := storage.NewFS(ns.RawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}

	for i := range incoming {
		if err := s.writeNote(store, &incoming[i]); err != nil {
			return nil, err
		}
	}

	// Removals run after writes so a path listed in both ends up removed.
	removed := make([]string, 0, len(req.Removed))
	for _, rel := range req.Removed {
		removed = append(removed, normalizePath(rel))
	}
	for _, rel := range removed {
		if err := deleteNoteFiles(store, rel); err != nil {
			return nil, err
		}
	}

	stored, err := s.loadStored(store)
	if err != nil {
		return nil, err
	}

	rendered, err := s.builder.Build(ctx, ns, stored)
	if err != nil {
		return nil, err
	}

	prev, err := status.Load(ns.StatusPath)
	if err != nil {
		return nil, err
	}
	ledger := status.Merge(prev, rendered, removed, time.Now())
	if err := status.Save(ns.StatusPath, ledger); err != nil {
		return nil, err
	}

	s.log.Info("publish complete",
		slog.String("tenant", ns.Tenant),
		slog.Int("incoming", len(incoming)),
		slog.Int("removed", len(removed)),
		slog.Int("total", len(rendered)))
	return &PublishResult{
		Tenant:   ns.Tenant,
		Notes:    rendered,
		Removed:  removed,
		Ledger:   ledger,
		BuiltAt:  time.Now(),
		SiteRoot: ns.OutDir,
	}, nil
}

// writeNote persists one incoming note, filling derived fields and removing
// the other representation so a path is never both plain and encrypted.
func (s *Service) writeNote(store storage.Provider, n *models.Note) error {
	if n.Mtime == 0 {
		n.Mtime = time.Now().UnixMilli()
	}
	if n.Encrypted {
		if n.Hash == "" {
			n.Hash = checksum.SumEncrypted(n.Ciphertext, n.IV, n.Salt)
		}
		if n.Meta.Date == "" {
			n.Meta.Date = time.Now().Format(time.RFC3339)
		}
		data, err := json.MarshalIndent(encSidecar{
			Ciphertext: n.Ciphertext,
			IV:         n.IV,
			Salt:       n.Salt,
			Hash:       n.Hash,
			Meta:       n.Meta,
			Mtime:      n.Mtime,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", apperr.ErrPersistence, n.RelativePath, err)
		}
		if err := store.Write(n.RelativePath+storage.SidecarExt, data); err != nil {
			return err
		}
		return store.Delete(n.RelativePath)
	}
	if n.Hash == "" {
		n.Hash = checksum.Sum([]byte(n.Content))
	}
	if err := store.Write(n.RelativePath, []byte(n.Content)); err != nil {
		return err
	}
	return store.Delete(n.RelativePath + storage.SidecarExt)
}

func deleteNoteFiles(store storage.Provider, rel string) error {
	if err := store.Delete(rel); err != nil {
		return err
	}
	return store.Delete(rel + storage.SidecarExt)
}

// loadStored reads the full stored note set back from disk. Malformed
// sidecars are skipped so one corrupt file never blocks a rebuild.
func (s *Service) loadStored(store storage.Provider) ([]models.Note, error) {
	infos, err := store.List()
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(infos))
	for _, info := range infos {
		data, err := store.Read(info.Path)
		if err != nil {
			return nil, err
		}
		if info.Sidecar {
			var sc encSidecar
			if err := json.Unmarshal(data, &sc); err != nil {
				s.log.Warn("skipping malformed encrypted sidecar",
					slog.String("path", info.Path), slog.Any("error", err))
				continue
			}
			hash := sc.Hash
			if hash == "" {
				hash = checksum.SumEncrypted(sc.Ciphertext, sc.IV, sc.Salt)
			}
			notes = append(notes, models.Note{
				RelativePath: strings.TrimSuffix(info.Path, storage.SidecarExt),
				Encrypted:    true,
				Ciphertext:   sc.Ciphertext,
				IV:           sc.IV,
				Salt:         sc.Salt,
				Meta:         sc.Meta,
				Hash:         hash,
				Mtime:        firstNonZero(sc.Mtime, info.Mtime.UnixMilli()),
			})
			continue
		}
		notes = append(notes, models.Note{
			RelativePath: info.Path,
			Content:      string(data),
			Hash:         checksum.Sum(data),
			Mtime:        info.Mtime.UnixMilli(),
		})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].RelativePath < notes[j].RelativePath })
	return notes, nil
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// Remove deletes notes and their output pages, rebuilds the remaining site,
// and drops the ledger entries. Paths that were never stored are ignored;
// only a batch where nothing matched is an error.
func (s *Service) Remove(ctx context.Context, tenant string, paths []string) (*PublishResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths to remove", apperr.ErrValidation)
	}
	ns, err := s.namespaceFor(tenant)
	if err != nil {
		return nil, err
	}
	lock := s.tenantLock(ns.Tenant)
	lock.Lock()
	defer lock.Unlock()

	store, err := storage.NewFS(ns.RawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}

	prev, err := status.Load(ns.StatusPath)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]struct{})
	infos, err := store.List()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		stored[strings.TrimSuffix(info.Path, storage.SidecarExt)] = struct{}{}
	}

	removed := make([]string, 0, len(paths))
	matched := 0
	for _, rel := range paths {
		clean := normalizePath(rel)
		_, onDisk := stored[clean]
		_, inLedger := prev[clean]
		if onDisk || inLedger {
			matched++
		}
		if err := deleteNoteFiles(store, clean); err != nil {
			return nil, err
		}
		removed = append(removed, clean)
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: none of the paths are published", apperr.ErrNotFound)
	}

	remaining, err := s.loadStored(store)
	if err != nil {
		return nil, err
	}
	rendered, err := s.builder.Build(ctx, ns, remaining)
	if err != nil {
		return nil, err
	}
	ledger := status.Merge(prev, rendered, removed, time.Now())
	if err := status.Save(ns.StatusPath, ledger); err != nil {
		return nil, err
	}

	s.log.Info("remove complete",
		slog.String("tenant", ns.Tenant),
		slog.Int("removed", matched),
		slog.Int("remaining", len(rendered)))
	return &PublishResult{
		Tenant:   ns.Tenant,
		Notes:    rendered,
		Removed:  removed,
		Ledger:   ledger,
		BuiltAt:  time.Now(),
		SiteRoot: ns.OutDir,
	}, nil
}

// GetStatus returns a snapshot of the tenant's ledger.
func (s *Service) GetStatus(_ context.Context, tenant string) (models.Ledger, error) {
	ns, err := s.namespaceFor(tenant)
	if err != nil {
		return nil, err
	}
	lock := s.tenantLock(ns.Tenant)
	lock.Lock()
	defer lock.Unlock()
	return status.Load(ns.StatusPath)
}

// BuildStored rebuilds the site from what is already on disk without
// touching stored notes. The ledger is refreshed to match the rebuild.
func (s *Service) BuildStored(ctx context.Context, tenant string) (*PublishResult, error) {
	ns, err := s.namespaceFor(tenant)
	if err != nil {
		return nil, err
	}
	lock := s.tenantLock(ns.Tenant)
	lock.Lock()
	defer lock.Unlock()

	store, err := storage.NewFS(ns.RawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}
	stored, err := s.loadStored(store)
	if err != nil {
		return nil, err
	}
	rendered, err := s.builder.Build(ctx, ns, stored)
	if err != nil {
		return nil, err
	}
	prev, err := status.Load(ns.StatusPath)
	if err != nil {
		return nil, err
	}
	ledger := status.Merge(prev, rendered, nil, time.Now())
	if err := status.Save(ns.StatusPath, ledger); err != nil {
		return nil, err
	}
	return &PublishResult{
		Tenant:   ns.Tenant,
		Notes:    rendered,
		Ledger:   ledger,
		BuiltAt:  time.Now(),
		SiteRoot: ns.OutDir,
	}, nil
}
