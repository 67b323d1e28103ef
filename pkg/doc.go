// Package pkg provides the core libraries for Dockhand host bootstrapping.
//
// # Overview
//
// Dockhand prepares a fresh Ubuntu host to run a Dockerized application
// stack: OS packages, the Docker engine, WireGuard tooling, a UFW firewall
// baseline, an SSH deploy key registered with GitHub, and a clone of the
// application repository. The pkg directory is organized by concern:
//
//  1. [pipeline] - Orchestration (ordered bootstrap steps, run semantics)
//  2. [apt], [firewall], [gitrepo], [sshkey], [wireguard] - Step implementations
//  3. [host], [execx] - Platform probing and command execution
//  4. [config], [report], [doctor] - Configuration, run records, verification
//
// # Architecture
//
// The typical flow through a bootstrap run:
//
//	config + host probe
//	         ↓
//	    [pipeline] package (ordered steps, skip/warn/fail semantics)
//	         ↓
//	    [apt] / [firewall] / [sshkey] / [gitrepo] / [wireguard]
//	         ↓
//	    [doctor] package (post-install verification)
//	         ↓
//	    [report] package (persisted run record)
//
// Every step probes before it mutates: work already done on the host is
// detected and skipped, so a run can be repeated safely after a failure.
//
// # Main Packages
//
// [pipeline] - The ordered step plan and its runner. Steps declare what they
// need, report ok/skipped/warned/failed, and stop the run on the first
// failure. Also renders the plan as DOT, SVG, or PNG.
//
// [apt] - Debian package installation via apt-get, including the Docker CE
// repository setup and docker group membership.
//
// [firewall] - UFW baseline: deny incoming, allow outgoing, allow a
// configured set of ports before enabling.
//
// [sshkey] - Deploy key generation (ed25519 by default) and the interactive
// GitHub registration loop driven by "ssh -T" probes.
//
// [gitrepo] - Repository clone and update with HTTPS first and SSH fallback,
// default branch resolution, and checkout.
//
// [wireguard] - Tooling install support and optional key pair generation.
//
// [host] - Platform detection (os-release), privilege checks, user account
// resolution, and presence probes for binaries, files, and groups.
//
// [execx] - Command execution with logging, timing, and a scriptable fake
// for tests.
//
// [config] - TOML configuration with environment overrides.
//
// [report] - Persisted run records under the XDG state directory.
//
// [doctor] - Post-install checks against the Docker daemon and git.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...        # All tests
//	go test ./pkg/pipeline   # Specific package
//
// [pipeline]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/pipeline
// [apt]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/apt
// [firewall]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/firewall
// [gitrepo]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/gitrepo
// [sshkey]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/sshkey
// [wireguard]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/wireguard
// [host]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/host
// [execx]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/execx
// [config]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/config
// [report]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/report
// [doctor]: https://pkg.go.dev/github.com/dockhand/dockhand/pkg/doctor
package pkg
