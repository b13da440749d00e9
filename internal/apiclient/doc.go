// Package apiclient is the HTTP client for the bank REST API.
//
// Every request is sent against a fixed base URL. Before sending, the client
// asks its TokenSource for the current session token and, if one is present,
// attaches it as a bearer credential. The client never stores, refreshes or
// retries anything: a failure is reported to the caller exactly once.
//
// Errors fall into three shapes:
//
//	*Error          the server answered with a non-2xx status
//	ErrTransport    the request never produced a response
//	ErrDecode       a 2xx body could not be decoded into the caller's type
//
// Responses of the form {"data": ...} decode into Envelope[T].
package apiclient
