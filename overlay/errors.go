package overlay

import (
	"errors"

	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/fetch"
)

var (
	ErrTemplateLoad   = document.ErrTemplateLoad
	ErrPageNotFound   = document.ErrPageNotFound
	ErrResourceAccess = document.ErrResourceAccess
	ErrNetwork        = fetch.ErrNetwork

	ErrFontFit     = errors.New("text does not fit its box")
	ErrImageDecode = errors.New("image could not be decoded")
)
