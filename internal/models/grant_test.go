package models

import (
	"testing"
	"time"
)

func TestGrantIsEffective(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	testCases := []struct {
		name      string
		grant     *Grant
		effective bool
	}{
		{"nil grant", nil, false},
		{"active without expiration", &Grant{IsActive: true}, true},
		{"inactive without expiration", &Grant{IsActive: false}, false},
		{"active expiring later", &Grant{IsActive: true, ExpiresAt: now.Unix() + 3600}, true},
		{"active expiring exactly now", &Grant{IsActive: true, ExpiresAt: now.Unix()}, true},
		{"active expired a second ago", &Grant{IsActive: true, ExpiresAt: now.Unix() - 1}, false},
		{"inactive with future expiration", &Grant{IsActive: false, ExpiresAt: now.Unix() + 3600}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.grant.IsEffective(now); got != tc.effective {
				t.Errorf("Expected IsEffective %v, got %v", tc.effective, got)
			}
		})
	}
}

func TestGrantExpiryIsComputed(t *testing.T) {
	// Expiry never flips IsActive by itself; the flag only changes on
	// revoke or sweep.
	grant := &Grant{IsActive: true, ExpiresAt: 100}

	if grant.IsEffective(time.Unix(200, 0)) {
		t.Error("Expected expired grant to be ineffective")
	}
	if !grant.IsActive {
		t.Error("Expected IsActive to stay true past expiration")
	}
}

func TestFindOverride(t *testing.T) {
	grant := &Grant{
		ExplicitPermissions: []ExplicitPermission{
			{ResourceType: ResourceProject, Action: ActionUpdate, Granted: false},
			{ResourceType: ResourceTask, Action: ActionComplete, Granted: true},
		},
	}

	override := grant.FindOverride(ResourceProject, ActionUpdate)
	if override == nil {
		t.Fatal("Expected override for project/update, got nil")
	}
	if override.Granted {
		t.Error("Expected project/update override to deny")
	}

	override = grant.FindOverride(ResourceTask, ActionComplete)
	if override == nil {
		t.Fatal("Expected override for task/complete, got nil")
	}
	if !override.Granted {
		t.Error("Expected task/complete override to grant")
	}

	if override := grant.FindOverride(ResourceProject, ActionDelete); override != nil {
		t.Errorf("Expected no override for project/delete, got %+v", override)
	}
}

func TestGrantSnapshot(t *testing.T) {
	grant := &Grant{
		Role:      string(ProjectContributor),
		ExpiresAt: 12345,
		ExplicitPermissions: []ExplicitPermission{
			{ResourceType: ResourceProject, Action: ActionDelete, Granted: true},
		},
	}

	snap := grant.Snapshot()
	if snap.Role != string(ProjectContributor) {
		t.Errorf("Expected role %q, got %q", ProjectContributor, snap.Role)
	}
	if snap.ExpiresAt != 12345 {
		t.Errorf("Expected expiresAt 12345, got %d", snap.ExpiresAt)
	}
	if len(snap.ExplicitPermissions) != 1 {
		t.Errorf("Expected 1 explicit permission, got %d", len(snap.ExplicitPermissions))
	}
}
