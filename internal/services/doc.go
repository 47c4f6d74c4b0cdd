// Package services implements the HTTP client for the remote video API.
//
// # Transport
//
// [Client] is the single configured transport: base URL, cookie jar, per-request timeout, a client-side
// rate limit ([rate.Limiter]) and a User-Agent. Every request carries the ambient session cookie through the
// jar and an X-Request-ID header; nothing in this package reads or attaches tokens by hand.
//
// # Envelope
//
// The API wraps payloads as {statusCode, data, message, success}. Successful responses are unwrapped and
// their data decoded into [models] values. Non-2xx responses become [*APIError] carrying the server's message.
//
// # Endpoints
//
//   - [Client.CurrentUser] : GET /users/me
//   - [Client.Login] : POST /users/login
//   - [Client.Register] : POST /users/register (multipart)
//   - [Client.Logout] : POST /users/logout
//   - [Client.ListVideos] : GET /videos, accepting a bare array or a {docs: [...]} page
//   - [Client.GetVideo] : GET /videos/{id}
//   - [Client.UploadVideo] : POST /videos (multipart)
//
// Multipart bodies are streamed through an [io.Pipe] so large video files are never buffered in memory.
//
// # Error Handling
//
// Errors match the sentinels in the shared package with [errors.Is]:
//   - [shared.ErrNotAuthenticated] : 401 or 403
//   - [shared.ErrInvalidInput] : 400, 409 or 422
//   - [shared.ErrVideoNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : the request never produced a response
//   - [shared.ErrMalformedResponse] : the body could not be decoded
//
// [MessageOf] turns any of these into the text a user should see.
package services
