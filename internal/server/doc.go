// Package server provides HTTP routing, middleware, and the one-shot OAuth capture server.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation matches request paths exactly, with optional method filtering and a not-found
// fallback. Unlike [http.ServeMux] it never cleans a path or answers with a redirect.
//
// # Capture Server
//
// [CaptureServer] accepts exactly one OAuth redirect. It owns a listener, a CSRF token generated at start, and a
// single-slot [mailbox.Mailbox] that receives either the authorization code or the reason the callback failed.
//
//	GET /ping                      → 200 "pong"            (no mailbox interaction)
//	GET /{path}?code=...&state=... → 200 "success"         (mailbox succeeds with code)
//	GET /{path} missing code/state → 400 "bad request: ..." (mailbox fails)
//	anything else                  → 404 "not found"       (mailbox fails)
//
// Paths are compared verbatim, so "//{path}" or "/a/../{path}" is an unknown path too.
// A code or state that is present but empty counts as received.
//
// The first resolution wins. A well-formed callback arriving after that gets 409; malformed and unknown requests keep
// their 400/404 answer. A fresh server is required for every authorization attempt.
//
// The state parameter is only required to be present. Set [Options.VerifyState] to also compare it with the CSRF
// token.
//
// # Lifecycle
//
// [Run] is the scoped form: it starts the server, hands it to a callback and always closes it. Closing abandons a
// pending mailbox so a caller blocked in [mailbox.Mailbox.Read] unwinds with [mailbox.ErrAbandoned].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
