package complaint

import "testing"

func TestComplaintView_AnonymousOwner(t *testing.T) {
	t.Parallel()

	c := &Complaint{ID: "c1", OwnerID: "owner", IsAnonymous: true}

	tests := []struct {
		name   string
		viewer Viewer
		want   string
	}{
		{"stranger", Viewer{ActorID: "someone"}, ""},
		{"unauthenticated", Viewer{}, ""},
		{"owner", Viewer{ActorID: "owner"}, "owner"},
		{"authority", Viewer{ActorID: "staff", Privileged: true}, "owner"},
	}
	for _, tt := range tests {
		if got := c.View(tt.viewer).OwnerID; got != tt.want {
			t.Errorf("%s: OwnerID = %q, want %q", tt.name, got, tt.want)
		}
	}
	if c.OwnerID != "owner" {
		t.Error("View mutated the original")
	}
}

func TestComplaintView_PublicOwner(t *testing.T) {
	t.Parallel()

	c := &Complaint{ID: "c1", OwnerID: "owner"}
	if got := c.View(Viewer{}).OwnerID; got != "owner" {
		t.Errorf("OwnerID = %q, want owner", got)
	}
}

func TestTimelineEventView_HidesAnonymousSubmitter(t *testing.T) {
	t.Parallel()

	owner, staff := "owner", "staff"
	c := &Complaint{ID: "c1", OwnerID: owner, IsAnonymous: true}
	submitted := &TimelineEvent{ComplaintID: "c1", ActorID: &owner, Type: EventSubmission}
	changed := &TimelineEvent{ComplaintID: "c1", ActorID: &staff, Type: EventStatusChange}

	if got := submitted.View(c, Viewer{ActorID: "x"}).ActorID; got != nil {
		t.Errorf("submission actor leaked: %q", *got)
	}
	if got := changed.View(c, Viewer{ActorID: "x"}).ActorID; got == nil || *got != staff {
		t.Errorf("status change actor = %v, want staff", got)
	}
	if got := submitted.View(c, Viewer{ActorID: owner}).ActorID; got == nil {
		t.Error("owner should see their own submission")
	}
}
