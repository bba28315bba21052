// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// blockedNetworks lists the address ranges tools may never reach.
// Covers loopback, RFC 1918 private space, link-local, the current
// network, and their IPv6 equivalents.
var blockedNetworks = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// blockedHostnames are names that resolve locally regardless of DNS.
var blockedHostnames = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
}

// IsIPBlocked reports whether an address string falls in a blocked range.
// Unparseable addresses are treated as blocked.
func IsIPBlocked(ipStr string) bool {
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	for _, network := range blockedNetworks {
		if network.Contains(addr) {
			return true
		}
	}
	return false
}

// resolver abstracts hostname resolution so tests can run without DNS.
type resolver func(host string) ([]string, error)

func systemResolve(host string) ([]string, error) {
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// ValidateURL enforces the egress policy on a destination URL.
//
// Description:
//
//	Checks in order: scheme must be https, hostname must be present and
//	not a known local name, and every address the hostname resolves to
//	must be outside the blocked ranges. Resolution failure is a block,
//	not a pass.
//
// Inputs:
//   - rawURL: The destination URL as supplied in the tool input.
//
// Outputs:
//   - string: The validated URL, unchanged, on success.
//   - error: Wraps ErrBlockedDestination with the failing check.
//
// Thread Safety: Safe for concurrent use.
func ValidateURL(rawURL string) (string, error) {
	return validateURLWith(rawURL, systemResolve)
}

func validateURLWith(rawURL string, resolve resolver) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: unparseable URL", ErrBlockedDestination)
	}

	if parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: only HTTPS URLs are allowed", ErrBlockedDestination)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("%w: no hostname", ErrBlockedDestination)
	}

	if _, blocked := blockedHostnames[strings.ToLower(hostname)]; blocked {
		return "", fmt.Errorf("%w: blocked hostname %q", ErrBlockedDestination, hostname)
	}

	// A literal IP skips DNS and is checked directly.
	if addr, err := netip.ParseAddr(hostname); err == nil {
		if IsIPBlocked(addr.String()) {
			return "", fmt.Errorf("%w: blocked address %q", ErrBlockedDestination, hostname)
		}
		return rawURL, nil
	}

	addrs, err := resolve(hostname)
	if err != nil {
		return "", fmt.Errorf("%w: DNS resolution failed for %q", ErrBlockedDestination, hostname)
	}
	for _, a := range addrs {
		if IsIPBlocked(a) {
			return "", fmt.Errorf("%w: hostname %q resolves to a blocked address", ErrBlockedDestination, hostname)
		}
	}

	return rawURL, nil
}
