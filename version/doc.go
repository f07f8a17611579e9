// Package version exposes the build identity reported in the startup summary
// and attached to exported telemetry.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/serverkit/version.Version=1.2.0"
package version
