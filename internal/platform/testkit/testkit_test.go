package testkit

import "testing"

func TestMustPanic(t *testing.T) {
	t.Parallel()
	MustPanic(t, func() { panic("boom") })
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()
	MustNotPanic(t, func() {})
}

func TestMustContain(t *testing.T) {
	t.Parallel()
	MustContain(t, "alpha beta gamma", "beta")
}

func TestMustEqual(t *testing.T) {
	t.Parallel()
	MustEqual(t, []string{"a"}, []string{"a"})
}

func TestSwapRestores(t *testing.T) {
	fn := func() int { return 1 }
	target := &fn
	t.Run("inner", func(t *testing.T) {
		Swap(t, target, func() int { return 2 })
		if (*target)() != 2 {
			t.Fatal("swap did not take")
		}
	})
	if (*target)() != 1 {
		t.Fatal("swap did not restore")
	}
}
