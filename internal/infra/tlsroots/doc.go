// Package tlsroots builds the root certificate pool the API client trusts:
// the system pool plus any PEM bundle named by server.ca_file.
package tlsroots
