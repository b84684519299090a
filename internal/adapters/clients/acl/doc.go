// Package acl keeps the remote quote endpoints' wire formats out of the
// domain.
//
// The source serves a bare JSON array of loosely typed objects; the push
// endpoint accepts an array of {text, category, id}. [QuoteSource] and
// [QuotePublisher] sit on an [Endpoint], which owns the request plumbing.
//
// Every failure to reach a remote endpoint becomes a [domain.FetchError].
// Non-2xx responses carry the HTTP status and, when the body has one, the
// remote message. A body that is not a JSON array is rejected before any item
// is read.
package acl
