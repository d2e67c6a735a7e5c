package models

import "errors"

var (
	// ErrDuplicateGrant is returned when an active, non-expired grant
	// already exists for the same actor and resource.
	ErrDuplicateGrant = errors.New("an active grant already exists for this user on this resource")

	// ErrGrantNotFound is returned by update/revoke for unknown or
	// inactive grant ids.
	ErrGrantNotFound = errors.New("grant not found")

	// ErrPermissionDenied is raised by callers that choose to fail a
	// request instead of hiding the protected branch.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUpstreamLookup marks a team-role or grant lookup that failed
	// because a collaborator was unavailable. The resolver converts it
	// to a deny, never a grant.
	ErrUpstreamLookup = errors.New("upstream permission lookup failed")

	ErrUnknownResourceType = errors.New("unknown resource type")
)
