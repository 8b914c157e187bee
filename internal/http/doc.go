// Package http provides the JSON API of the room booking service.
//
// Routes:
//   - GET|POST /oauth2callback: completes the Google OAuth dance. The code is read
//     from the `code` query parameter or a {"code"} body. Response:
//     {"token","expires_at","user":{"id","email","name","domain"}}.
//   - GET /oauth2/url: consent URL for clients that start the dance here.
//   - GET /rooms?start&end: the caller's events that hold a conference room.
//   - GET|POST|PUT|DELETE /room?id: fetch, book, change or cancel one booking.
//   - GET /available-rooms?start&end&seats&floor: free rooms, smallest first.
//   - GET /floors: floors known for the caller's domain.
//   - GET /conference-rooms, POST /conference-rooms/sync: the cached room list.
//   - POST /logout: drops the stored Google tokens; outstanding session tokens
//     stop working.
//
// Every route except the OAuth ones requires `Authorization: Bearer <token>`.
// Errors are rendered as {"error_code","message","errors"}.
package http
