package probe

import (
	"context"
	"testing"
)

func TestHostOf(t *testing.T) {
	cases := map[string]string{
		"nats://user:pw@broker:4222":         "broker",
		"nats://a.example:4222,b.example:42": "a.example",
		"postgres://db.internal/app":         "db.internal",
		"cache:6379":                         "cache",
		"eventstore":                         "eventstore",
		"  tcp://10.0.0.7:1113  ":            "10.0.0.7",
	}
	for in, want := range cases {
		if got := HostOf(in); got != want {
			t.Fatalf("HostOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckDNS_NoLookupNeeded(t *testing.T) {
	if got := CheckDNS(context.Background(), "").Class; got != "INVALID_NAME" {
		t.Fatalf("empty name: got %q", got)
	}
	if got := CheckDNS(context.Background(), "127.0.0.1").Class; got != "IP_LITERAL" {
		t.Fatalf("ip literal: got %q", got)
	}
}
