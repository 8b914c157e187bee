// Package google adapts the Google OAuth, Calendar and Admin Directory APIs to
// the interfaces the application services depend on.
//
// Every client is bound to a user's stored tokens through a static token
// source: expired tokens are not refreshed and surface as 401 errors. Failed
// calls are returned as *application.UpstreamError carrying the HTTP status
// they map to.
package google
