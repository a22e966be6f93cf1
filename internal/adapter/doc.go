/*
Package adapter provides the composition root that wires one store account's
REST client, FileSystem verb surface, metrics, health checker, transfer
engine, ACL walker, and optional FUSE mount into a single Adapter value.

# Component integration

	┌─────────────────────────────────────────────┐
	│                 Client Apps                  │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│            Kernel VFS/FUSE (optional)        │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│                 ADAPTER                      │ ← this package
	└─────────────────────────────────────────────┘
	    │        │        │        │        │
	┌───┴───┐┌───┴───┐┌───┴───┐┌───┴───┐┌───┴────┐
	│RestCli││  FS   ││Metrics││Health ││Transfer│
	└───────┘└───────┘└───────┘└───────┘└────────┘

# Lifecycle

New validates the storage URI and configuration, then constructs every
component eagerly except the FUSE mount manager, which Start creates only
when a mount point was configured. Start brings up the
metrics collector and active health checker, and, if a mount point was
configured, mounts the FUSE filesystem; Stop unmounts (if mounted) and tears
both down in the mirror order. Upload, Download, and ApplyAcl are stateless
forwards to the already-wired transfer engine and ACL walker and can be
called whether or not Start has been called.

# Storage URI support

	https://account.store.example.com       # direct endpoint
	azure://account.store.example.com       # shorthand, rewritten to https://

# Usage

	a, err := adapter.New(ctx, "azure://myaccount.dfs.example.com", "/mnt/data", cfg, token)
	if err != nil {
		log.Fatal(err)
	}
	if err := a.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer a.Stop(ctx)

	// /mnt/data is now a POSIX mount backed by the store account.
	// a.FileSystem() gives programmatic Ls/Info/Mkdir/... access directly.
*/
package adapter
