package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/notecrypt"
	"github.com/starford/sowilo/internal/render"
)

// encBundle is the opaque ciphertext bundle embedded into a placeholder
// page for client-side decryption. It carries no secrets beyond the
// ciphertext itself.
type encBundle struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// pageMeta is the per-page metadata rendered into the article header.
type pageMeta struct {
	Title       string
	Description string
	Author      string
	Category    string
	Date        time.Time
	Encrypted   bool
	Enc         *encBundle
}

func esc(s string) string { return html.EscapeString(s) }

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func baseStyles(themeKey string) string {
	css := `
  :root { --bg:#fdfdfd; --fg:#0f172a; --muted:#6b7280; --card:#ffffff; --border:#e5e7eb; --accent:#111827; }
  * { box-sizing: border-box; }
  body { font-family: 'Inter','Segoe UI',system-ui,-apple-system,sans-serif; margin:0; background:var(--bg); color:var(--fg); }
  a { color: inherit; }
  header.site-header { max-width:1200px; margin:0 auto; padding:22px 18px 10px; display:flex; align-items:center; gap:14px; }
  header.site-header .title { font-weight:700; font-size:18px; }
  nav { display:flex; gap:12px; flex-wrap:wrap; }
  nav a { text-decoration:none; color:var(--muted); }
  nav a:hover { color:var(--fg); }
  .hero { max-width:1200px; margin:0 auto; padding:8px 18px 12px; }
  .hero h1 { margin:0; font-size:34px; }
  .hero .lead { margin:8px 0 0; color:var(--muted); max-width:680px; line-height:1.6; }
  .home-grid { max-width:1200px; margin:0 auto; padding:6px 18px 64px; display:grid; grid-template-columns:repeat(auto-fit,minmax(260px,1fr)); gap:36px 46px; }
  .card { display:grid; gap:10px; padding-bottom:22px; border-bottom:1px solid var(--border); }
  .card .meta-line { display:flex; justify-content:space-between; font-size:12px; color:var(--muted); text-transform:uppercase; }
  .card h3 { margin:0; font-size:20px; }
  .card h3 a { color:var(--fg); text-decoration:none; }
  .card .excerpt { margin:0; color:var(--muted); line-height:1.6; font-size:14px; }
  .card .author { font-size:13px; font-weight:600; }
  .card.encrypted { border:1px dashed var(--border); border-radius:12px; padding:16px 14px; border-bottom:none; }
  main.article-layout { max-width:1200px; margin:0 auto; padding:6px 18px 64px; display:grid; grid-template-columns:minmax(0,3fr) 300px; gap:42px; align-items:start; }
  article { min-width:0; overflow-wrap:break-word; }
  article h1 { font-size:32px; margin:0 0 12px; }
  article h2 { margin-top:32px; border-bottom:1px solid var(--border); padding-bottom:6px; }
  article p { line-height:1.75; margin:0 0 16px; }
  article pre { background:#0f172a; color:#e5e7eb; padding:14px; border-radius:10px; overflow:auto; }
  article code { font-family:'JetBrains Mono',Consolas,monospace; background:rgba(15,23,42,0.06); padding:2px 4px; border-radius:4px; }
  article pre code { background:transparent; padding:0; }
  article blockquote { margin:16px 0; padding:12px 16px; border-left:3px solid var(--accent); background:rgba(15,23,42,0.04); }
  article table { width:100%; border-collapse:collapse; margin:16px 0; font-size:14px; }
  article th, article td { padding:10px 12px; border:1px solid var(--border); text-align:left; }
  .article-meta { display:flex; gap:10px; color:var(--muted); font-size:13px; margin-bottom:14px; }
  .tag-pill { padding:6px 10px; border-radius:999px; background:rgba(15,23,42,0.05); font-size:12px; text-transform:uppercase; }
  .toc { position:sticky; top:80px; border-left:1px solid var(--border); padding-left:16px; }
  .toc h4 { margin:0 0 8px; font-size:14px; color:var(--muted); text-transform:uppercase; }
  .toc ul { list-style:none; padding-left:0; margin:0; display:grid; gap:6px; }
  .toc a { text-decoration:none; color:var(--muted); font-size:13px; }
  footer { max-width:1200px; margin:0 auto; padding:0 18px 32px; color:var(--muted); }
  .encrypted-placeholder { border:1px dashed var(--border); border-radius:12px; background:rgba(148,163,184,0.12); padding:16px; color:var(--muted); }
  .encrypted-actions { display:flex; gap:10px; margin-top:12px; flex-wrap:wrap; }
  .encrypted-actions input { padding:10px 12px; border-radius:10px; border:1px solid var(--border); min-width:220px; }
  .encrypted-actions button { padding:10px 14px; border-radius:10px; border:1px solid var(--border); background:var(--card); cursor:pointer; font-weight:600; }
  .encrypted-msg { color:#ef4444; margin-top:6px; }
  .encrypted-content { margin-top:12px; }
`
	if p, ok := presets[NormalizeTheme(themeKey)]; ok {
		css += p.CSS
	}
	return css
}

func writeHeader(buf *bytes.Buffer, cfg models.SiteConfig, basePath string) {
	buf.WriteString(`<header class="site-header"><div class="title">` + esc(cfg.SiteTitle) + `</div><nav>`)
	for _, item := range cfg.Nav {
		href := item.Href
		if basePath != "" && len(href) > 0 && href[0] == '/' {
			href = basePath + href
		}
		label := item.Label
		if label == "" {
			label = item.Href
		}
		buf.WriteString(`<a href="` + esc(href) + `">` + esc(label) + `</a>`)
	}
	buf.WriteString(`</nav></header>`)
}

func writeFooter(buf *bytes.Buffer, cfg models.SiteConfig, urlPath string) {
	buf.WriteString(`<footer><div>` + esc(cfg.Footer) + `</div>`)
	if urlPath != "" {
		buf.WriteString(`<div style="font-size:12px;">` + esc(urlPath) + `</div>`)
	}
	buf.WriteString(`</footer>`)
}

// decryptScript is the client-side contract for encrypted placeholders:
// PBKDF2 (fixed iterations, SHA-256) keyed by a user passphrase, then
// AES-GCM. Failure shows one generic message regardless of which step
// failed. The passphrase never leaves the browser.
func decryptScript(enc *encBundle) string {
	payload, _ := json.Marshal(enc)
	return `<script>(() => {
  const enc = ` + string(payload) + `;
  const input = document.getElementById('sowilo-pass');
  const btn = document.getElementById('sowilo-decrypt');
  const msg = document.getElementById('sowilo-msg');
  const out = document.getElementById('sowilo-content');
  if (!input || !btn || !enc.ciphertext) return;
  const b64 = (s) => Uint8Array.from(atob(s), c => c.charCodeAt(0));
  async function decrypt(secret) {
    const key = await crypto.subtle.importKey('raw', new TextEncoder().encode(secret), { name: 'PBKDF2' }, false, ['deriveKey']);
    const aes = await crypto.subtle.deriveKey({ name: 'PBKDF2', salt: b64(enc.salt), iterations: ` + strconv.Itoa(notecrypt.Iterations) + `, hash: 'SHA-256' }, key, { name: 'AES-GCM', length: 256 }, false, ['decrypt']);
    const plain = await crypto.subtle.decrypt({ name: 'AES-GCM', iv: b64(enc.iv) }, aes, b64(enc.ciphertext));
    return new TextDecoder().decode(plain);
  }
  function stripFrontMatter(text) {
    if (!text.startsWith('---')) return text;
    const end = text.indexOf('\n---', 3);
    return end === -1 ? text : text.slice(end + 4);
  }
  async function ensureMd() {
    if (window.markdownit) return window.markdownit;
    await import('https://cdn.jsdelivr.net/npm/markdown-it@14.1.0/dist/markdown-it.min.js');
    return window.markdownit;
  }
  btn.addEventListener('click', async () => {
    msg.textContent = ''; out.innerHTML = '';
    const pwd = input.value || '';
    if (!pwd) { msg.textContent = 'Enter the key first'; return; }
    try {
      const text = await decrypt(pwd);
      const md = await ensureMd();
      out.innerHTML = md({ breaks: true }).render(stripFrontMatter(text));
    } catch (e) {
      msg.textContent = 'Decrypt failed or wrong key';
    }
  });
})();</script>`
}

const encryptedPlaceholderBody = `<div class="encrypted-placeholder">
<div>This post is encrypted. Only author, category, and time are visible. Enter the key to decrypt.</div>
<div class="encrypted-actions"><input id="sowilo-pass" type="password" placeholder="Enter key to decrypt"><button id="sowilo-decrypt">Decrypt</button></div>
<div id="sowilo-msg" class="encrypted-msg"></div>
<div id="sowilo-content" class="encrypted-content"></div>
</div>`

// ArticlePage renders one note page (or encrypted placeholder) as a templ
// component.
func ArticlePage(cfg models.SiteConfig, meta pageMeta, bodyHTML, urlPath, basePath string, toc []render.Heading) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		buf.WriteString(`<title>` + esc(meta.Title) + ` | ` + esc(cfg.SiteTitle) + `</title>`)
		buf.WriteString(`<meta name="description" content="` + esc(meta.Description) + `"/>`)
		buf.WriteString(`<link rel="canonical" href="` + esc(urlPath) + `"/>`)
		buf.WriteString(`<style>` + baseStyles(cfg.Theme) + `</style></head><body>`)
		writeHeader(&buf, cfg, basePath)
		buf.WriteString(`<main class="article-layout"><article><div class="article-meta">`)
		if meta.Category != "" {
			buf.WriteString(`<span class="tag-pill">` + esc(meta.Category) + `</span>`)
		}
		if label := dateLabel(meta.Date); label != "" {
			buf.WriteString(`<span>` + esc(label) + `</span>`)
		}
		if meta.Author != "" {
			buf.WriteString(`<span>By ` + esc(meta.Author) + `</span>`)
		}
		buf.WriteString(`</div>`)
		if !meta.Encrypted {
			buf.WriteString(`<h1>` + esc(meta.Title) + `</h1>`)
		}
		buf.WriteString(bodyHTML)
		buf.WriteString(`</article>`)
		if !meta.Encrypted && len(toc) > 0 {
			buf.WriteString(`<aside class="toc"><h4>Contents</h4><ul>`)
			for _, h := range toc {
				indent := (h.Level - 1) * 8
				buf.WriteString(fmt.Sprintf(`<li style="margin-left:%dpx;"><a href="#%s">%s</a></li>`, indent, esc(h.ID), esc(h.Text)))
			}
			buf.WriteString(`</ul></aside>`)
		}
		buf.WriteString(`</main>`)
		writeFooter(&buf, cfg, urlPath)
		if meta.Encrypted && meta.Enc != nil {
			buf.WriteString(decryptScript(meta.Enc))
		}
		buf.WriteString(`</body></html>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// ListingPage renders the aggregated listing for a tenant (or, with a
// synthetic config, the root listing across tenants). notes must already be
// sorted date-descending with title as the tie break.
func ListingPage(cfg models.SiteConfig, notes []models.RenderedNote, basePath string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		buf.WriteString(`<title>` + esc(cfg.SiteTitle) + `</title>`)
		buf.WriteString(`<style>` + baseStyles(cfg.Theme) + `</style></head><body>`)
		writeHeader(&buf, cfg, basePath)
		buf.WriteString(`<section class="hero"><h1>` + esc(cfg.SiteTitle) + `</h1><p class="lead">` + esc(cfg.Description) + `</p></section>`)
		buf.WriteString(`<section class="home-grid">`)
		if len(notes) == 0 {
			buf.WriteString(`<article class="card"><p class="excerpt">No posts yet</p></article>`)
		}
		for _, n := range notes {
			category := n.Category
			if category == "" && len(n.Tags) > 0 {
				category = n.Tags[0]
			}
			if category == "" {
				category = "Update"
			}
			author := n.Author
			if author == "" {
				author = cfg.Author
			}
			cardClass := "card"
			if n.Encrypted {
				cardClass = "card encrypted"
			}
			buf.WriteString(`<article class="` + cardClass + `">`)
			buf.WriteString(`<div class="meta-line"><span>` + esc(category) + `</span><span>` + esc(dateLabel(n.Date)) + `</span></div>`)
			if n.Encrypted {
				buf.WriteString(`<h3><a href="` + esc(n.URL) + `">Encrypted post</a></h3>`)
			} else {
				buf.WriteString(`<h3><a href="` + esc(n.URL) + `">` + esc(n.Title) + `</a></h3>`)
				buf.WriteString(`<p class="excerpt">` + esc(n.Summary) + `</p>`)
			}
			buf.WriteString(`<div class="author">` + esc(author) + `</div></article>`)
		}
		buf.WriteString(`</section>`)
		writeFooter(&buf, cfg, "")
		buf.WriteString(`</body></html>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}
