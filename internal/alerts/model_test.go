package alerts

import (
	"encoding/json"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to AlertStatus
		wantErr  bool
	}{
		{"unread to read", StatusUnread, StatusRead, false},
		{"read to acknowledged", StatusRead, StatusAcknowledged, false},
		{"acknowledged to resolved", StatusAcknowledged, StatusResolved, false},
		{"unread straight to resolved", StatusUnread, StatusResolved, false},
		{"read back to unread", StatusRead, StatusUnread, true},
		{"resolved to acknowledged", StatusResolved, StatusAcknowledged, true},
		{"same status", StatusRead, StatusRead, true},
		{"dismiss unread", StatusUnread, StatusDismissed, false},
		{"dismiss acknowledged", StatusAcknowledged, StatusDismissed, false},
		{"dismiss resolved", StatusResolved, StatusDismissed, true},
		{"leave dismissed", StatusDismissed, StatusRead, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestAlertUnmarshalKeepsRawPayload(t *testing.T) {
	raw := `{"id":"a1","title":"Low stock","status":"unread","priority":"low","ward":"ICU-2","escalationPolicy":"page-charge-nurse"}`

	var a Alert
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Title != "Low stock" || a.Status != StatusUnread {
		t.Errorf("interpreted fields not decoded: %+v", a)
	}
	if string(a.Extra) != raw {
		t.Errorf("raw payload not preserved: %s", a.Extra)
	}

	clone := a.Clone()
	clone.Extra[0] = 'X'
	if string(a.Extra) != raw {
		t.Error("clone shares Extra backing array with original")
	}
}
