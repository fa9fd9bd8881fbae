package config

import (
	"testing"
	"time"

	"challengeutils/internal/platform/testkit"
)

func TestMustStringPanicsWhenMissing(t *testing.T) {
	c := New().Prefix("CU_CFG_TEST_")
	testkit.MustPanic(t, func() { c.MustString("ABSENT") })
}

func TestMustPort(t *testing.T) {
	t.Setenv("CU_CFG_TEST_PORT", "8080")
	c := New().Prefix("CU_CFG_TEST_")
	if got := c.MustPort("PORT"); got != ":8080" {
		t.Fatalf("MustPort = %q", got)
	}
	t.Setenv("CU_CFG_TEST_PORT", "99999")
	testkit.MustPanic(t, func() { c.MustPort("PORT") })
}

func TestMustURL(t *testing.T) {
	t.Setenv("CU_CFG_TEST_BASE", "https://repo-prod.prod.sagebase.org/repo/v1")
	c := New().Prefix("CU_CFG_TEST_")
	if got := c.MustURL("BASE").Host; got != "repo-prod.prod.sagebase.org" {
		t.Fatalf("host = %q", got)
	}
	t.Setenv("CU_CFG_TEST_BASE", "not a url")
	testkit.MustPanic(t, func() { c.MustURL("BASE") })
}

func TestMayAccessorsFallBack(t *testing.T) {
	c := New().Prefix("CU_CFG_TEST_MAY_")
	if got := c.MayString("S", "d"); got != "d" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayInt("I", 4); got != 4 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayDuration("D", 2*time.Second); got != 2*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
	t.Setenv("CU_CFG_TEST_MAY_B", "true")
	if !c.MayBool("B", false) {
		t.Fatal("MayBool should parse true")
	}
	t.Setenv("CU_CFG_TEST_MAY_CSV", "a, b ,,c")
	got := c.MayCSV("CSV", nil)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("MayCSV = %v", got)
	}
}
