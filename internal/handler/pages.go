package handler

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

const (
	redirectPage    = "301.html"
	unavailablePage = "503.html"
)

//go:embed pages/*.html
var embeddedPages embed.FS

// Page is a static response body.
type Page struct {
	ContentType string
	Body        []byte
}

// Pages holds the bodies sent with redirects and unavailability responses.
type Pages struct {
	Redirect    Page
	Unavailable Page
}

// LoadPages reads 301.html and 503.html from dir, or uses the built-in pages
// when dir is empty.
func LoadPages(dir string) (*Pages, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embeddedPages, "pages")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	redirect, err := readPage(fsys, redirectPage)
	if err != nil {
		return nil, err
	}

	unavailable, err := readPage(fsys, unavailablePage)
	if err != nil {
		return nil, err
	}

	return &Pages{Redirect: redirect, Unavailable: unavailable}, nil
}

func readPage(fsys fs.FS, name string) (Page, error) {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Page{}, fmt.Errorf("read page %s: %w", name, err)
	}

	return Page{ContentType: wire.ContentType(name), Body: body}, nil
}
