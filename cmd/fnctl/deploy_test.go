package main

import "testing"

func TestResolveRegion(t *testing.T) {
	t.Setenv("REGION", "")

	if got := resolveRegion("eu-west-1", "us-west-2"); got != "eu-west-1" {
		t.Errorf("flag should win, got %q", got)
	}

	t.Setenv("REGION", "ap-southeast-1")
	if got := resolveRegion("", "us-west-2"); got != "ap-southeast-1" {
		t.Errorf("REGION env should win over catalog, got %q", got)
	}

	t.Setenv("REGION", "")
	if got := resolveRegion("", "us-west-2"); got != "us-west-2" {
		t.Errorf("catalog environment region should apply, got %q", got)
	}
	if got := resolveRegion("", ""); got != defaultRegion {
		t.Errorf("expected default region, got %q", got)
	}
}
