// Package api is the gateway to the remote hospital REST API.
//
// Every call is made with the caller's context. The bearer token is never
// passed explicitly: the client's transport reads it from the session view
// attached to the context (see session.NewContext), so a request made after
// logout carries no Authorization header.
//
// Non-2xx responses are returned as *Error. errors.Is(err, ErrUnauthorized)
// reports an expired or rejected token. The client never retries.
package api
