// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

/*
Package supervisor runs Ceema's long-lived services under a suture v4 tree.

	RootSupervisor ("ceema")
	├── IndexSupervisor ("index-layer")
	│   └── index.Watcher (if INDEX_WATCH)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Crashed services restart with suture's backoff. Supervisor events go to the
zerolog logger through logging.NewSlogLogger and the sutureslog hook.

Usage in main.go:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddIndexService(index.NewWatcher(registry, debounce, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}
*/
package supervisor
