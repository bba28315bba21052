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
	"errors"
	"testing"
)

func publicResolve(host string) ([]string, error) {
	return []string{"93.184.216.34"}, nil
}

func TestIsIPBlocked(t *testing.T) {
	cases := []struct {
		ip      string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.0.5", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"2606:4700::1111", false},
		{"not-an-ip", true},
	}
	for _, tc := range cases {
		if got := IsIPBlocked(tc.ip); got != tc.blocked {
			t.Errorf("IsIPBlocked(%q) = %v, want %v", tc.ip, got, tc.blocked)
		}
	}
}

func TestValidateURL_SchemeEnforcement(t *testing.T) {
	for _, raw := range []string{
		"http://example.com",
		"file:///etc/passwd",
		"ftp://example.com/file",
	} {
		if _, err := validateURLWith(raw, publicResolve); !errors.Is(err, ErrBlockedDestination) {
			t.Errorf("expected blocked for %q, got %v", raw, err)
		}
	}
}

func TestValidateURL_BlockedHostnames(t *testing.T) {
	for _, raw := range []string{
		"https://localhost/admin",
		"https://LOCALHOST/admin",
		"https://localhost.localdomain/",
	} {
		if _, err := validateURLWith(raw, publicResolve); !errors.Is(err, ErrBlockedDestination) {
			t.Errorf("expected blocked for %q, got %v", raw, err)
		}
	}
}

func TestValidateURL_LiteralPrivateIP(t *testing.T) {
	for _, raw := range []string{
		"https://127.0.0.1/",
		"https://192.168.1.1/x",
		"https://10.0.0.5:8443/api",
		"https://[::1]/",
	} {
		if _, err := validateURLWith(raw, publicResolve); !errors.Is(err, ErrBlockedDestination) {
			t.Errorf("expected blocked for %q, got %v", raw, err)
		}
	}
}

func TestValidateURL_ResolvesToBlockedIP(t *testing.T) {
	rebindResolve := func(host string) ([]string, error) {
		return []string{"93.184.216.34", "10.0.0.1"}, nil
	}
	if _, err := validateURLWith("https://evil.example.com/", rebindResolve); !errors.Is(err, ErrBlockedDestination) {
		t.Errorf("expected blocked when any resolved address is private, got %v", err)
	}
}

func TestValidateURL_DNSFailureBlocks(t *testing.T) {
	failResolve := func(host string) ([]string, error) {
		return nil, errors.New("no such host")
	}
	if _, err := validateURLWith("https://nonexistent.example/", failResolve); !errors.Is(err, ErrBlockedDestination) {
		t.Errorf("expected blocked on DNS failure, got %v", err)
	}
}

func TestValidateURL_PublicHostPasses(t *testing.T) {
	url := "https://example.com/page"
	got, err := validateURLWith(url, publicResolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != url {
		t.Errorf("expected URL returned unchanged, got %q", got)
	}
}
