// Package discovery advertises the introspection HTTP endpoint via mDNS so
// a LAN companion dashboard can locate it without a fixed address (§4.14).
// It never advertises the IPC transport itself. Modeled on
// cmd/can-server/mdns.go.
package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the fixed mDNS service type this broker advertises under.
const ServiceType = "_obsbridge._tcp"

// Advertise registers the introspection endpoint on port under instance
// (or a hostname-derived default) and returns a cleanup function. It is
// always safe to call the returned cleanup, even after ctx is done.
func Advertise(ctx context.Context, instance, version string, port int) (func(), error) {
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("obsbridge-%s", host)
	}
	meta := []string{"version=" + version}
	svc, err := zeroconf.Register(instance, ServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
