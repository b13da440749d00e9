// Package bankfake is an in-process stand-in for the bank REST API.
//
// It implements the session and user endpoints the client depends on:
//
//	POST   /sessions   {username, password} -> {token}
//	DELETE /sessions   revoke the bearer token
//	GET    /users/me   {data: profile}
//	POST   /users      register
//
// plus hooks that tests use to script the server: preset token values,
// per-route fault injection, request counting and request holds that park a
// handler until the test releases it. It is a test double, not a server.
package bankfake
