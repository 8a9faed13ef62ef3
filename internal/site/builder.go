package site

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/frontmatter"
	"github.com/starford/sowilo/internal/links"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/namespace"
	"github.com/starford/sowilo/internal/render"
	"github.com/starford/sowilo/internal/siteindex"
)

// Builder turns a tenant's stored notes into a static site under the
// tenant's output directory. idx is nil outside multi-tenant mode.
type Builder struct {
	log     *slog.Logger
	idx     *siteindex.DB
	outRoot string
}

func NewBuilder(log *slog.Logger, idx *siteindex.DB, outRoot string) *Builder {
	return &Builder{log: log, idx: idx, outRoot: outRoot}
}

// NoteURL maps a tenant-relative note path to its URL path. The markdown
// extension is stripped, "index" collapses to the tenant root, and a
// trailing "/index" collapses to the parent directory.
func NoteURL(rel string) string {
	p := links.StripExt(strings.ReplaceAll(rel, "\\", "/"))
	p = strings.Trim(p, "/")
	if p == "index" {
		return ""
	}
	p = strings.TrimSuffix(p, "/index")
	return p
}

func joinURL(basePath, urlPath string) string {
	if urlPath == "" {
		return basePath + "/"
	}
	return basePath + "/" + urlPath + "/"
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}

// builtPage is a fully rendered page held in memory until every note in the
// batch has rendered. Nothing is written to disk on a failed build.
type builtPage struct {
	urlPath string
	html    []byte
}

// Build renders every stored note of the namespace and rewrites the output
// directory. It returns the rendered metadata, sorted newest first.
func (b *Builder) Build(ctx context.Context, ns namespace.Namespace, notes []models.Note) ([]models.RenderedNote, error) {
	cfg := LoadSiteConfig(ns.ConfigPath)
	if _, err := os.Stat(ns.ThemePath); err == nil {
		cfg.Theme = LoadTheme(ns.ThemePath)
	}

	paths := make([]string, 0, len(notes))
	for _, n := range notes {
		paths = append(paths, links.StripExt(strings.ReplaceAll(n.RelativePath, "\\", "/")))
	}
	slugs := links.NewSlugMap(paths)

	rendered := make([]models.RenderedNote, len(notes))
	pages := make([]builtPage, len(notes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range notes {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rn, pg, err := b.buildNote(gctx, cfg, ns, notes[i], slugs)
			if err != nil {
				return fmt.Errorf("%w: render %s: %w", apperr.ErrRender, notes[i].RelativePath, err)
			}
			rendered[i] = rn
			pages[i] = pg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		if !rendered[i].Date.Equal(rendered[j].Date) {
			return rendered[i].Date.After(rendered[j].Date)
		}
		return rendered[i].Title < rendered[j].Title
	})

	// The new tree is assembled in a hidden staging directory and swapped
	// in whole. A failed build leaves the published tree untouched.
	stage := ns
	stage.OutDir = filepath.Join(filepath.Dir(ns.OutDir), "."+filepath.Base(ns.OutDir)+".stage")
	if err := os.RemoveAll(stage.OutDir); err != nil {
		return nil, fmt.Errorf("%w: clear staging: %w", apperr.ErrPersistence, err)
	}
	defer os.RemoveAll(stage.OutDir)
	if err := os.MkdirAll(stage.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging: %w", apperr.ErrPersistence, err)
	}

	rootTaken := false
	for _, pg := range pages {
		if pg.urlPath == "" {
			rootTaken = true
		}
		if err := writePage(stage.OutDir, pg); err != nil {
			return nil, err
		}
	}

	// A note published at the root URL is the homepage; the listing only
	// fills that slot when no note claims it.
	if !rootTaken {
		var buf bytes.Buffer
		if err := ListingPage(cfg, rendered, ns.BasePath).Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("%w: listing: %w", apperr.ErrRender, err)
		}
		if err := writePage(stage.OutDir, builtPage{urlPath: "", html: buf.Bytes()}); err != nil {
			return nil, err
		}
	}

	if err := b.writeManifest(stage, rendered); err != nil {
		return nil, err
	}
	if err := b.writeFeed(stage, cfg, rendered); err != nil {
		return nil, err
	}
	if err := b.writeSitemap(stage, rendered); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(ns.OutDir); err != nil {
		return nil, fmt.Errorf("%w: clear output: %w", apperr.ErrPersistence, err)
	}
	if err := os.Rename(stage.OutDir, ns.OutDir); err != nil {
		return nil, fmt.Errorf("%w: swap output: %w", apperr.ErrPersistence, err)
	}

	if b.idx != nil {
		if err := b.idx.ReplaceTenant(ns.Tenant, rendered); err != nil {
			return nil, err
		}
		if err := b.RebuildRoot(ctx); err != nil {
			return nil, err
		}
	}

	b.log.Info("site built",
		slog.String("tenant", ns.Tenant),
		slog.Int("notes", len(rendered)))
	return rendered, nil
}

func (b *Builder) buildNote(ctx context.Context, cfg models.SiteConfig, ns namespace.Namespace, note models.Note, slugs *links.SlugMap) (models.RenderedNote, builtPage, error) {
	urlPath := NoteURL(note.RelativePath)
	url := joinURL(ns.BasePath, urlPath)
	fallback := time.UnixMilli(note.Mtime)
	if note.Mtime == 0 {
		fallback = time.Now()
	}

	var (
		meta pageMeta
		rn   models.RenderedNote
		body string
		toc  []render.Heading
	)
	if note.Encrypted {
		meta = pageMeta{
			Title:     "Encrypted post",
			Author:    note.Meta.Author,
			Category:  note.Meta.Category,
			Date:      parseDate(note.Meta.Date, fallback),
			Encrypted: true,
			Enc: &encBundle{
				Ciphertext: note.Ciphertext,
				IV:         note.IV,
				Salt:       note.Salt,
			},
		}
		body = encryptedPlaceholderBody
		rn = models.RenderedNote{
			RelativePath: note.RelativePath,
			URL:          url,
			Hash:         note.Hash,
			Title:        meta.Title,
			Author:       meta.Author,
			Category:     meta.Category,
			Date:         meta.Date,
			Encrypted:    true,
		}
	} else {
		fm, md := frontmatter.Parse([]byte(note.Content))
		rewritten, _ := links.Rewrite(md, note.RelativePath, slugs)
		res := render.Render(rewritten)
		body = res.HTML
		toc = res.TOC

		// An explicit batch title outranks the filename but not the front
		// matter or a leading heading.
		name := note.Title
		if name == "" {
			name = path.Base(links.StripExt(strings.ReplaceAll(note.RelativePath, "\\", "/")))
		}
		title := frontmatter.DeriveTitle(fm, md, name)
		author := frontmatter.StringField(fm, "author")
		if author == "" {
			author = cfg.Author
		}
		tags := frontmatter.ListField(fm, "tags")
		category := frontmatter.StringField(fm, "category")
		if category == "" && len(tags) > 0 {
			category = tags[0]
		}
		summary := frontmatter.StringField(fm, "description")
		if summary == "" {
			summary = render.Excerpt(md, 180)
		}
		date := parseDate(frontmatter.StringField(fm, "date"), fallback)

		meta = pageMeta{
			Title:       title,
			Description: summary,
			Author:      author,
			Category:    category,
			Date:        date,
		}
		rn = models.RenderedNote{
			RelativePath: note.RelativePath,
			URL:          url,
			Hash:         note.Hash,
			Title:        title,
			Summary:      summary,
			Tags:         tags,
			Author:       author,
			Category:     category,
			Date:         date,
		}
	}

	var buf bytes.Buffer
	if err := ArticlePage(cfg, meta, body, url, ns.BasePath, toc).Render(ctx, &buf); err != nil {
		return models.RenderedNote{}, builtPage{}, err
	}
	return rn, builtPage{urlPath: urlPath, html: buf.Bytes()}, nil
}

func writePage(outDir string, pg builtPage) error {
	dir := outDir
	if pg.urlPath != "" {
		dir = filepath.Join(outDir, filepath.FromSlash(pg.urlPath))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: page dir %s: %w", apperr.ErrPersistence, pg.urlPath, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), pg.html, 0o644); err != nil {
		return fmt.Errorf("%w: page %s: %w", apperr.ErrPersistence, pg.urlPath, err)
	}
	return nil
}

// manifest is the machine-readable build summary served next to the site.
type manifest struct {
	GeneratedAt string                `json:"generatedAt"`
	Notes       []models.RenderedNote `json:"notes"`
}

func (b *Builder) writeManifest(ns namespace.Namespace, rendered []models.RenderedNote) error {
	m := manifest{GeneratedAt: time.Now().UTC().Format(time.RFC3339), Notes: rendered}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", apperr.ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(ns.OutDir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("%w: manifest: %w", apperr.ErrPersistence, err)
	}
	return nil
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

func (b *Builder) writeFeed(ns namespace.Namespace, cfg models.SiteConfig, rendered []models.RenderedNote) error {
	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.SiteTitle,
			Link:        joinURL(ns.BasePath, ""),
			Description: cfg.Description,
		},
	}
	for _, rn := range rendered {
		desc := rn.Summary
		if rn.Encrypted {
			desc = "Encrypted post"
		}
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       rn.Title,
			Link:        rn.URL,
			Description: desc,
			PubDate:     rn.Date.Format(time.RFC1123Z),
		})
	}
	data, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: feed: %w", apperr.ErrPersistence, err)
	}
	out := append([]byte(xml.Header), data...)
	if err := os.WriteFile(filepath.Join(ns.OutDir, "feed.xml"), out, 0o644); err != nil {
		return fmt.Errorf("%w: feed: %w", apperr.ErrPersistence, err)
	}
	return nil
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (b *Builder) writeSitemap(ns namespace.Namespace, rendered []models.RenderedNote) error {
	set := sitemapSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{
		Loc:     joinURL(ns.BasePath, ""),
		LastMod: time.Now().UTC().Format("2006-01-02"),
	})
	for _, rn := range rendered {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     rn.URL,
			LastMod: rn.Date.Format("2006-01-02"),
		})
	}
	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: sitemap: %w", apperr.ErrPersistence, err)
	}
	out := append([]byte(xml.Header), data...)
	if err := os.WriteFile(filepath.Join(ns.OutDir, "sitemap.xml"), out, 0o644); err != nil {
		return fmt.Errorf("%w: sitemap: %w", apperr.ErrPersistence, err)
	}
	return nil
}

// RebuildRoot regenerates the cross-tenant listing at the output root from
// the rendered-note index. Multi-tenant mode only.
func (b *Builder) RebuildRoot(ctx context.Context) error {
	if b.idx == nil {
		return nil
	}
	all, err := b.idx.All()
	if err != nil {
		return err
	}
	cfg := models.SiteConfig{
		SiteTitle:   "sowilo",
		Description: "All published notes",
		Footer:      "Powered by sowilo",
		Theme:       "default",
	}
	var buf bytes.Buffer
	if err := ListingPage(cfg, all, "").Render(ctx, &buf); err != nil {
		return fmt.Errorf("%w: root listing: %w", apperr.ErrRender, err)
	}
	if err := os.MkdirAll(b.outRoot, 0o755); err != nil {
		return fmt.Errorf("%w: output root: %w", apperr.ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(b.outRoot, "index.html"), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: root listing: %w", apperr.ErrPersistence, err)
	}
	return nil
}
