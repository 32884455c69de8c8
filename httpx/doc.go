// Package httpx layers HTTP/1.1 request/response framing onto the tcp
// package's connections: an incremental Parser turns a byte stream into
// Messages, a Context gives request handlers write helpers and a user-data
// slot, and Server/Client wire a tcp.Server/tcp.Client's callbacks into that
// parse-and-dispatch loop. Router and StaticHandler are thin collaborators
// built on top, not part of the parsing core.
//
// Example:
//
//	loop, _ := reactor.NewEventLoop()
//	addr := netutil.NewAddress(netip.IPv4Unspecified(), 8080)
//	srv, _ := httpx.NewServer(loop, addr, true)
//	router := httpx.NewRouter()
//	router.AddRoute("/health", func(ctx *httpx.Context) {
//		ctx.StartResponse(200)
//		ctx.SendHeader("Content-Length", "2")
//		ctx.EndHeaders()
//		ctx.Send([]byte("ok"))
//	})
//	srv.SetRequestCallback(router.HandleRequest)
//	srv.Start()
//	loop.Run()
package httpx
