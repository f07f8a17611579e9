// Package server brings up the listeners of a deployment variant and
// serves a gin engine on them.
//
// A Builder collects routes, mounts and middleware; Start binds the sockets
// and returns a running Server:
//
//	srv, err := server.New(values, state, server.WithPipeline(p)).
//		Handle(http.MethodGet, "/hello", hello).
//		Start(ctx)
//	if err != nil {
//		return err
//	}
//	defer srv.Handle().Stop(context.Background())
//	return srv.Wait()
//
// Plain variants serve HTTP/1.1 and h2c, TLS variants negotiate HTTP/2, and
// the QUIC variants add HTTP/3 on the same port with an Alt-Svc
// advertisement on every TCP response. Static certificates are loaded before
// anything is bound; ACME certificates are issued right after bind, and a
// failed issuance stops the server with CERTIFICATE_FAILURE.
//
// # Middleware
//
// Every request passes through, outermost first: Recovery, RequestID,
// Tracing (telemetry capability), RequestLogger, CORS (allow_cors_domain),
// AltSvc (QUIC variants), InjectState, then the application's own.
//
// # Documentation
//
// With allow_oapi_access the OpenAPI document is served at
// {oapi_api_addr}/openapi.json and the chosen front-end at oapi_api_addr,
// registered ahead of the application routes.
package server
