// Package session owns the bank session credential and the answer to
// "am I authenticated, and as whom?".
//
// A Manager moves through the phases defined in domain.Phase:
//
//	Unresolved ──Init──▶ Anonymous                  (no stored token)
//	Unresolved ──Init──▶ Authenticating ──▶ Authenticated | Anonymous
//	Anonymous ──Login──▶ Authenticating ──▶ Authenticated | Anonymous
//	Anonymous ──Login──▶ AuthenticationFailed ──▶ Anonymous
//	any       ──Logout─▶ Anonymous
//
// Any profile-fetch failure clears the token, the stored copy and the
// profile in one transition.
//
// Concurrency: state lives behind a mutex that is only held for in-memory
// commits. Every asynchronous step captures the generation counter before
// it performs I/O and commits only if the counter is unchanged afterwards.
// Every change of token (login, teardown, external change) bumps the
// counter, so a profile fetch that finishes after a logout is dropped.
// A separate sign-out epoch covers session creation: a login whose
// POST /sessions is overtaken by a logout revokes the new session instead
// of adopting it.
//
// The Manager is the API client's TokenSource: the bearer header always
// reflects the token held in the current state.
package session
