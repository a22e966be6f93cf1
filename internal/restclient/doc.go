/*
Package restclient implements the REST call layer for a webHDFS-compatible
store endpoint.

Client.Call validates (op, params) against a fixed operation table before any
network I/O, signs each attempt via the caller-supplied pkg/types.TokenProvider,
retries transient failures through pkg/retry, and trips a per-client
internal/circuit breaker on sustained failure. Status codes are mapped to
pkg/errors.StoreError, with a BadOffsetException special case that signals the
write path a retried append already landed.
*/
package restclient
