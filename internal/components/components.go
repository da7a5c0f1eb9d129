// Package components assembles static pages by injecting the shared header and
// footer fragments into their placeholders.
package components

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/langowen/converter/internal/entities"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	activeClass   = "text-primary"
	inactiveClass = "text-gray-700"
)

type fragment struct {
	placeholderID string
	file          string
}

var fragments = []fragment{
	{placeholderID: "header-placeholder", file: "components/header.html"},
	{placeholderID: "footer-placeholder", file: "components/footer.html"},
}

type Loader struct {
	fsys fs.FS
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// BasePath is the relative prefix that leads from urlPath back to the site root.
func BasePath(urlPath string) string {
	if strings.Contains(urlPath, "/pages/") {
		return ".."
	}
	return "."
}

// RewriteLinks makes root-relative href and src attributes relative to base.
func RewriteLinks(fragment, base string) string {
	fragment = strings.ReplaceAll(fragment, `href="/`, `href="`+base+`/`)
	fragment = strings.ReplaceAll(fragment, `src="/`, `src="`+base+`/`)
	return fragment
}

// Page reads the page that urlPath points at and assembles it.
func (l *Loader) Page(urlPath string) ([]byte, error) {
	const op = "components.Page"

	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "index.html"
	}
	if path.Ext(name) == "" {
		name = path.Join(name, "index.html")
	}

	page, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return l.Assemble(bytes.NewReader(page), urlPath)
}

// Assemble injects every fragment into its placeholder. A missing placeholder
// is skipped and a fragment that cannot be loaded is logged and left out.
func (l *Loader) Assemble(page io.Reader, urlPath string) ([]byte, error) {
	const op = "components.Assemble"

	doc, err := html.Parse(page)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	base := BasePath(urlPath)
	body := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })

	for _, f := range fragments {
		placeholder := findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && attr(n, "id") == f.placeholderID
		})
		if placeholder == nil {
			continue
		}

		if err := l.inject(placeholder, body, f.file, base); err != nil {
			slog.Error("Error loading component", "component", f.file, "error", err)
		}
	}

	highlightCurrentPage(doc, urlPath)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return buf.Bytes(), nil
}

func (l *Loader) inject(placeholder, body *html.Node, file, base string) error {
	const op = "components.inject"

	raw, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return errors.Wrap(err, op)
	}

	nodes, err := html.ParseFragment(strings.NewReader(RewriteLinks(string(raw), base)), placeholder)
	if err != nil {
		return errors.Wrap(err, op)
	}

	for c := placeholder.FirstChild; c != nil; c = placeholder.FirstChild {
		placeholder.RemoveChild(c)
	}
	for _, n := range nodes {
		placeholder.AppendChild(n)
	}

	if body != nil {
		moveScripts(placeholder, body)
	}

	return nil
}

// moveScripts relocates fragment scripts to the end of body so they run after the markup exists.
func moveScripts(from, body *html.Node) {
	scripts := findAll(from, func(n *html.Node) bool { return n.DataAtom == atom.Script })
	for _, s := range scripts {
		s.Parent.RemoveChild(s)
		body.AppendChild(s)
	}
}

func highlightCurrentPage(doc *html.Node, urlPath string) {
	headers := findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Header })

	for _, h := range headers {
		links := findAll(h, func(n *html.Node) bool { return n.DataAtom == atom.A })
		for _, a := range links {
			href := attr(a, "href")
			target := strings.TrimPrefix(strings.TrimPrefix(href, ".."), ".")
			if target == "" || !strings.HasSuffix(urlPath, target) {
				continue
			}

			classes := strings.Fields(attr(a, "class"))
			kept := classes[:0]
			for _, c := range classes {
				if c != inactiveClass && c != activeClass {
					kept = append(kept, c)
				}
			}
			setAttr(a, "class", strings.Join(append(kept, activeClass), " "))
		}
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
