// Package proxy implements a reverse-proxy request handler on top of
// httpx: one upstream httpx.Client per downstream request, forwarding
// headers and streaming the response back in order.
package proxy

import (
	"fmt"
	"strings"

	"github.com/frezcirno/rpx/httpx"
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
)

// Handler forwards every request it receives to a fixed upstream address.
type Handler struct {
	upstream netutil.Address
	logger   reactor.Logger
}

// NewHandler builds a handler that proxies to upstream.
func NewHandler(upstream netutil.Address) *Handler {
	return &Handler{upstream: upstream, logger: reactor.NopLogger{}}
}

// SetLogger installs the logger used for proxy diagnostics.
func (h *Handler) SetLogger(logger reactor.Logger) { h.logger = logger }

// Handle is an httpx.Handler: it opens one upstream client per downstream
// request, keeps it alive in the downstream Context's user-data slot for
// the request's lifetime, forwards the request line/headers/body upstream,
// and streams the upstream response back to the downstream connection.
func (h *Handler) Handle(down *httpx.Context) {
	req := down.Message()
	if req == nil {
		down.SendError(502)
		return
	}
	// The parser reuses its message slot as soon as this handler returns,
	// so the request is copied before the asynchronous upstream connect
	// reads it.
	reqCopy := *req
	reqCopy.Headers = append([]httpx.Header(nil), req.Headers...)
	reqCopy.Body = append([]byte(nil), req.Body...)
	req = &reqCopy

	// Sharing the downstream connection's own loop keeps the whole proxied
	// round trip on one thread, so nothing here needs a lock.
	client := httpx.NewClient(down.Connection().Loop(), h.upstream)
	client.SetReconnect(false)
	down.SetUserData(client)

	client.SetConnectCallback(func(up *httpx.Context) {
		h.forwardRequest(down, up, req)
	})
	client.SetResponseCallback(func(up *httpx.Context) {
		h.forwardResponse(down, up)
	})
	client.SetCloseCallback(func(up *httpx.Context) {
		down.ForceClose()
	})

	down.SetCloseCallback(func(*httpx.Context) {
		h.teardownUpstream(client)
	})

	client.Connect()
}

func (h *Handler) forwardRequest(down *httpx.Context, up *httpx.Context, req *Message) {
	up.StartRequest(req.Method, req.Path)
	for _, hd := range req.Headers {
		if strings.EqualFold(hd.Name, "Host") {
			continue
		}
		up.SendHeader(hd.Name, hd.Value)
	}
	up.SendHeader("Host", h.upstream.String())
	up.SendHeader("X-Forwarded-For", down.Connection().PeerAddr().String())
	up.EndHeaders()
	if len(req.Body) > 0 {
		up.Send(req.Body)
	}
}

func (h *Handler) forwardResponse(down *httpx.Context, up *httpx.Context) {
	resp := up.Message()
	if resp == nil {
		down.SendError(502)
		return
	}
	down.StartResponse(resp.StatusCode, resp.Reason)
	for _, hd := range resp.Headers {
		down.SendHeader(hd.Name, hd.Value)
	}
	down.SendHeader("Content-Length", fmt.Sprintf("%d", len(resp.Body)))
	down.EndHeaders()
	if len(resp.Body) > 0 {
		down.Send(resp.Body)
	}
}

// teardownUpstream nils out the upstream client's connect/response
// callbacks before stopping it, so a close racing with an in-flight
// upstream event never calls back into a downstream that is already gone.
func (h *Handler) teardownUpstream(client *httpx.Client) {
	client.SetConnectCallback(nil)
	client.SetResponseCallback(nil)
	client.Stop()
}

// Message is a local alias for httpx.Message, the request type used in
// forwardRequest's signature.
type Message = httpx.Message
