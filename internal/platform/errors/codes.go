// Package errors provides structured error handling for the leveling core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Member errors
	CodeMemberNotFound       Code = "MEMBER_NOT_FOUND"
	CodeMemberEmptyID        Code = "MEMBER_EMPTY_ID"
	CodeMemberNegativeXP     Code = "MEMBER_NEGATIVE_XP"
	CodeMemberNegativeLevel  Code = "MEMBER_NEGATIVE_LEVEL"
	CodeMemberLevelIntegrity Code = "MEMBER_LEVEL_INTEGRITY_VIOLATION"

	// Community errors
	CodeCommunityNotFound        Code = "COMMUNITY_NOT_FOUND"
	CodeCommunityEmptyID         Code = "COMMUNITY_EMPTY_ID"
	CodeCommunityInvalidCooldown Code = "COMMUNITY_INVALID_COOLDOWN"

	// Role reward errors
	CodeRoleEmptyRef     Code = "ROLE_EMPTY_REF"
	CodeRoleInvalidLevel Code = "ROLE_INVALID_LEVEL"

	// Leaderboard sync errors
	CodeSyncUnknownSource     Code = "SYNC_UNKNOWN_SOURCE"
	CodeSyncCommunityNotFound Code = "SYNC_COMMUNITY_NOT_FOUND"
	CodeSyncSourceEmpty       Code = "SYNC_SOURCE_EMPTY"
	CodeSyncTransportFailure  Code = "SYNC_TRANSPORT_FAILURE"
	CodeSyncMalformedPage     Code = "SYNC_MALFORMED_PAGE"

	// Storage / collaborator errors
	CodeStorageFailure Code = "STORAGE_FAILURE"
	CodeNotifyFailure  Code = "NOTIFY_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeMemberEmptyID,
		CodeMemberNegativeXP,
		CodeMemberNegativeLevel,
		CodeCommunityEmptyID,
		CodeCommunityInvalidCooldown,
		CodeRoleEmptyRef,
		CodeRoleInvalidLevel,
		CodeSyncUnknownSource:
		return codes.InvalidArgument

	// NotFound - missing records or unknown external communities
	case CodeMemberNotFound,
		CodeCommunityNotFound,
		CodeSyncCommunityNotFound:
		return codes.NotFound

	// FailedPrecondition - the source exists but has nothing to import
	case CodeSyncSourceEmpty:
		return codes.FailedPrecondition

	// Unavailable - transient I/O failures, retryable by the caller
	case CodeSyncTransportFailure,
		CodeStorageFailure,
		CodeNotifyFailure:
		return codes.Unavailable

	// Internal - invariants that must never break
	case CodeMemberLevelIntegrity,
		CodeSyncMalformedPage:
		return codes.Internal

	default:
		return codes.Unknown
	}
}
