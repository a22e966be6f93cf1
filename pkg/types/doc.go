/*
Package types provides the small set of interfaces and data structures shared
across the store client's subsystems: the external TokenProvider capability,
and the plain data shapes used for metrics, health, and connection-pool
reporting.

Domain types that belong to a single subsystem — directory entries, chunks,
file transfers, REST call parameters — live in the packages that own them
(internal/filesystem, internal/transfer, internal/restclient) rather than
here, so that this package stays a thin, stable contract rather than a
catch-all.

# TokenProvider

The client never acquires credentials itself. Callers supply a TokenProvider
that knows how to sign requests and refresh itself:

	type myProvider struct{ token string }

	func (p *myProvider) SignedHeaders(ctx context.Context) (map[string]string, error) {
		return map[string]string{"Authorization": "Bearer " + p.token}, nil
	}

	func (p *myProvider) Refresh(ctx context.Context) error {
		p.token = fetchNewToken()
		return nil
	}
*/
package types
