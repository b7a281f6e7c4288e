// Package server provides HTTP routing, middleware and the JSON API for the curator.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses gorilla/mux internally for method matching and path variables.
// Unknown paths and methods answer with the same {"detail": ...} body as every other error.
//
// # API
//
// [API] mounts these endpoints:
//
//	POST   /api/chat          {message} -> {agent_response, cart}
//	GET    /api/cart          -> {cart}
//	GET    /api/cart/export   ?format=csv|md|txt|json|yaml
//	POST   /api/auth          {curl_command} -> refreshes the credential bundle
//	DELETE /api/session       ends the caller's session
//	GET    /api/history       ?limit=N -> {playlists}
//	GET    /api/history/{id}  -> {playlist}
//	GET    /health
//
// The caller's session travels in the ytcurator_session cookie and is created on the first chat message.
// Each session serializes its own messages; different sessions run in parallel.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
