package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeMemberNotFound, "member missing")
	wrapped := fmt.Errorf("lookup: %w", err)

	if !errors.Is(wrapped, New(CodeMemberNotFound, "different message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if errors.Is(wrapped, New(CodeCommunityNotFound, "member missing")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Wrap(CodeStorageFailure, "upsert member", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be traversable")
	}
	if err.Error() != "upsert member" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("sync: %w", New(CodeSyncCommunityNotFound, "not on that platform"))
	if got := CodeOf(err); got != CodeSyncCommunityNotFound {
		t.Fatalf("CodeOf = %q, want %q", got, CodeSyncCommunityNotFound)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeMemberEmptyID, codes.InvalidArgument},
		{CodeCommunityInvalidCooldown, codes.InvalidArgument},
		{CodeMemberNotFound, codes.NotFound},
		{CodeSyncCommunityNotFound, codes.NotFound},
		{CodeSyncSourceEmpty, codes.FailedPrecondition},
		{CodeSyncTransportFailure, codes.Unavailable},
		{CodeStorageFailure, codes.Unavailable},
		{CodeMemberLevelIntegrity, codes.Internal},
		{Code("SOMETHING_ELSE"), codes.Unknown},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%s GRPCCode = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestToGRPCStatusCarriesErrorInfo(t *testing.T) {
	t.Parallel()

	err := WithMetadata(CodeSyncCommunityNotFound, "community unknown to source", map[string]string{
		"source":    "mee6",
		"community": "c-1",
	}).ToGRPCStatus()

	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected a grpc status error")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.NotFound)
	}
	if len(st.Details()) != 1 {
		t.Fatalf("expected one detail, got %d", len(st.Details()))
	}
}
