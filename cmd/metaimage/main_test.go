package main

import "testing"

func TestResolveBaseURLPrefersFlag(t *testing.T) {
	getenv := func(key string) string {
		if key == "PUBLIC_BASE_URL" {
			return "https://env.velopix.example"
		}
		return ""
	}
	if got := resolveBaseURL("https://flag.velopix.example/", getenv); got != "https://flag.velopix.example" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestResolveBaseURLFallsBackToEnvironment(t *testing.T) {
	getenv := func(key string) string {
		if key == "PUBLIC_BASE_URL" {
			return "https://env.velopix.example/"
		}
		return ""
	}
	if got := resolveBaseURL("", getenv); got != "https://env.velopix.example" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestResolveBaseURLEmptyMeansNoOp(t *testing.T) {
	if got := resolveBaseURL("  ", func(string) string { return "" }); got != "" {
		t.Fatalf("expected empty base url, got %q", got)
	}
}
