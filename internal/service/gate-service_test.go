package service

import (
	"collab_service/internal/models"
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func allowActions(allowed ...models.PermissionAction) *fakeChecker {
	return &fakeChecker{decide: func(check Check) (bool, error) {
		for _, a := range allowed {
			if check.Action == a {
				return true, nil
			}
		}
		return false, nil
	}}
}

func TestGateAllow(t *testing.T) {
	gate := NewAccessGate(allowActions(models.ActionRead), nil)
	actorID := bson.NewObjectID()
	resourceID := bson.NewObjectID()

	if !gate.Allow(context.Background(), actorID, Check{models.ResourceProject, resourceID, models.ActionRead}) {
		t.Error("Expected read to be allowed")
	}
	if gate.Allow(context.Background(), actorID, Check{models.ResourceProject, resourceID, models.ActionDelete}) {
		t.Error("Expected delete to be denied")
	}
}

func TestGateAllowFailsClosed(t *testing.T) {
	gate := NewAccessGate(&fakeChecker{decide: func(Check) (bool, error) {
		return true, errors.New("resolver unavailable")
	}}, nil)

	if gate.Allow(context.Background(), bson.NewObjectID(), Check{models.ResourceProject, bson.NewObjectID(), models.ActionRead}) {
		t.Error("Expected resolver error to deny")
	}
}

func TestGateEvaluate(t *testing.T) {
	resourceID := bson.NewObjectID()
	readCheck := Check{models.ResourceProject, resourceID, models.ActionRead}
	deleteCheck := Check{models.ResourceProject, resourceID, models.ActionDelete}

	gate := NewAccessGate(allowActions(models.ActionRead), nil)
	actorID := bson.NewObjectID()

	testCases := []struct {
		name    string
		checks  []Check
		mode    CombineMode
		inverse bool
		want    bool
	}{
		{"all pass", []Check{readCheck}, CombineAll, false, true},
		{"all with one failing", []Check{readCheck, deleteCheck}, CombineAll, false, false},
		{"any with one passing", []Check{deleteCheck, readCheck}, CombineAny, false, true},
		{"any with none passing", []Check{deleteCheck}, CombineAny, false, false},
		{"inverse flips allow", []Check{readCheck}, CombineAll, true, false},
		{"inverse flips deny", []Check{deleteCheck}, CombineAll, true, true},
		{"empty check list", nil, CombineAll, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := gate.Evaluate(context.Background(), actorID, tc.checks, tc.mode, tc.inverse)
			if got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGateRequire(t *testing.T) {
	notifier := &fakeNotifier{}
	gate := NewAccessGate(allowActions(models.ActionRead), notifier)
	actorID := bson.NewObjectID()
	resourceID := bson.NewObjectID()

	if err := gate.Require(context.Background(), actorID, Check{models.ResourceProject, resourceID, models.ActionRead}); err != nil {
		t.Fatalf("Expected allowed check to pass, got %v", err)
	}
	if len(notifier.denials) != 0 {
		t.Errorf("Expected no denial notices, got %d", len(notifier.denials))
	}

	err := gate.Require(context.Background(), actorID, Check{models.ResourceProject, resourceID, models.ActionDelete})
	if err == nil {
		t.Fatal("Expected denied check to error, got nil")
	}
	if !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
	if len(notifier.denials) != 1 {
		t.Fatalf("Expected 1 denial notice, got %d", len(notifier.denials))
	}
	if notifier.denials[0].Action != models.ActionDelete {
		t.Errorf("Expected denial for delete, got %s", notifier.denials[0].Action)
	}
}
