package httpx

import "fmt"

// statusText maps common HTTP status codes (100-505) to their standard
// reason phrases.
var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	409: "Conflict",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	426: "Upgrade Required",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// ReasonPhrase returns the standard reason phrase for code, or a generic
// fallback if the code isn't in the table.
func ReasonPhrase(code int) string {
	if r, ok := statusText[code]; ok {
		return r
	}
	return "Unknown Status"
}

// errorPage renders the minimal HTML page SendError emits.
func errorPage(code int) string {
	reason := ReasonPhrase(code)
	return fmt.Sprintf(
		"<html><head><title>%d %s</title></head><body><center><h1>%d %s</h1></center></body></html>",
		code, reason, code, reason,
	)
}
