package httpx

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StaticHandler serves files from a directory tree. In alias mode the
// matched router prefix is stripped from the request path before joining
// it to root; the joined path is always re-validated against root so a
// request can't escape it with "..", matching net/http.ServeFile's safety
// guarantee.
type StaticHandler struct {
	root  string
	alias string
}

// NewStaticHandler serves files under root. alias, if non-empty, is the
// router prefix to strip from incoming paths before resolving them under
// root.
func NewStaticHandler(root, alias string) *StaticHandler {
	return &StaticHandler{root: filepath.Clean(root), alias: alias}
}

// Handle resolves ctx.Message().Path under root and streams the file back,
// or sends a 404/403/500 as appropriate.
func (h *StaticHandler) Handle(ctx *Context) {
	msg := ctx.Message()
	if msg == nil {
		ctx.SendError(400)
		return
	}

	reqPath := msg.Path
	if h.alias != "" {
		reqPath = strings.TrimPrefix(reqPath, h.alias)
	}
	reqPath = path.Clean("/" + reqPath)

	fullPath := filepath.Join(h.root, filepath.FromSlash(reqPath))
	if fullPath != h.root && !strings.HasPrefix(fullPath, h.root+string(filepath.Separator)) {
		ctx.SendError(403)
		return
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			ctx.SendError(404)
		} else {
			ctx.SendError(500)
		}
		return
	}

	ctx.StartResponse(200)
	ctx.SendHeader("Content-Type", contentTypeFor(fullPath))
	ctx.SendHeader("Content-Length", fmt.Sprintf("%d", len(data)))
	ctx.EndHeaders()
	ctx.Send(data)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
