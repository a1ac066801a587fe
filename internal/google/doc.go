// Package google handles the OAuth side of talking to Google.
//
// Refresher turns the long-lived refresh token into a short-lived access
// token with one refresh grant per call. CachingTokenProvider optionally keeps
// that access token in a tokencache.Cache until shortly before it expires.
// ConsentFlow runs the one-time authorization-code grant that mints the
// refresh token in the first place.
package google
