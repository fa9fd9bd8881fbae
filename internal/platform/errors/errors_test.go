package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCodeAndCause(t *testing.T) {
	t.Parallel()
	cause := stderrs.New("boom")
	err := Wrap(cause, ErrorCodeConflict, "visibility conflict")

	if !IsCode(err, ErrorCodeConflict) {
		t.Fatalf("code = %v", CodeOf(err))
	}
	if !stderrs.Is(err, cause) {
		t.Fatal("cause lost through wrap")
	}
	if Root(err) != cause {
		t.Fatalf("Root = %v", Root(err))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatusCode(tc.code); got != tc.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestWireFrom(t *testing.T) {
	t.Parallel()
	w := WireFrom(WithField(InvalidArgf("bad value"), "score"))
	if w.Code != ErrorCodeInvalidArgument || w.Field != "score" {
		t.Fatalf("wire = %+v", w)
	}
	if w = WireFrom(nil); w.Code != ErrorCodeUnknown || w.Message != "" {
		t.Fatalf("nil wire = %+v", w)
	}
	if w = WireFrom(stderrs.New("plain")); w.Message != "plain" {
		t.Fatalf("foreign wire = %+v", w)
	}
}

func TestWithFieldChainWrapsForeignErrors(t *testing.T) {
	t.Parallel()
	err := WithFieldChain(stderrs.New("nope"), "key1")
	e, ok := As(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if e.Field() != "key1" {
		t.Fatalf("field = %q", e.Field())
	}
}

func TestRetryableCodes(t *testing.T) {
	t.Parallel()
	if !Retryable(Unavailablef("down")) {
		t.Fatal("unavailable should be retryable")
	}
	if !Retryable(Newf(ErrorCodeTooManyRequests, "throttled")) {
		t.Fatal("rate limited should be retryable")
	}
	if Retryable(Conflictf("conflict")) {
		t.Fatal("conflicts are caller-correctable, not retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
