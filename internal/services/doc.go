// Package services talks to the HTTP APIs the bot depends on.
//
// # Player
//
// [Player] is what the bot needs from a streaming account. [SpotifyService] implements it against the Spotify Web API
// and also implements [OAuthService] for the authorization code flow started by the CLI.
//
// Requests are throttled with a [rate.Limiter] and authenticated with an [oauth2] client that refreshes expired
// access tokens using the refresh token.
//
// # Track Links
//
// [ParseTrackID] accepts the forms viewers paste into chat:
//   - https://open.spotify.com/track/<id>?si=...
//   - https://open.spotify.com/intl-xx/track/<id>
//   - spotify:track:<id>
//   - a bare 22 character base62 <id>
//
// # Capture Server Client
//
// [CaptureClient] makes raw requests to a running capture server, for health checks from the CLI.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no token yet
//   - [shared.ErrTokenExpired] : the API answered 401
//   - [shared.ErrTrackNotFound] : the track ID does not exist
//   - [shared.ErrServiceUnavailable] : no active playback device, or rate limited
//   - [shared.ErrAPIRequest] : any other failed request
package services
