// Package server wraps http.Server with context-driven lifecycle and graceful
// shutdown.
//
// Start blocks until the context is canceled or the listener fails; Stop
// drains in-flight requests within the configured shutdown timeout. The proxy
// gateway hangs off a single Server instance owned by the process entry point.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		<-ctx.Done()
//		_ = srv.Stop()
//	}()
//	return srv.Start(ctx, mux)
package server
