package commands

import (
	"errors"
	"testing"
	"time"

	"eisen/internal/output"
	"eisen/internal/service"
	"eisen/internal/tasks"
)

func TestParseTaskRef_NumericOnly(t *testing.T) {
	ref, err := ParseTaskRef([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.HasLetter {
		t.Error("expected HasLetter to be false")
	}
	if ref.TaskNum != 5 {
		t.Errorf("expected TaskNum 5, got %d", ref.TaskNum)
	}
}

func TestParseTaskRef_CombinedRef(t *testing.T) {
	ref, err := ParseTaskRef([]string{"d1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ref.HasLetter {
		t.Error("expected HasLetter to be true")
	}
	if ref.Letter != 'd' {
		t.Errorf("expected Letter 'd', got %c", ref.Letter)
	}
	if ref.TaskNum != 1 {
		t.Errorf("expected TaskNum 1, got %d", ref.TaskNum)
	}
}

func TestParseTaskRef_CombinedRefMultiDigit(t *testing.T) {
	ref, err := ParseTaskRef([]string{"s12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Letter != 's' || ref.TaskNum != 12 {
		t.Errorf("expected s12, got %s", ref)
	}
}

func TestParseTaskRef_SeparatedRef(t *testing.T) {
	ref, err := ParseTaskRef([]string{"c", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.String() != "c3" {
		t.Errorf("expected c3, got %s", ref)
	}
}

func TestParseTaskRef_LetterOnly(t *testing.T) {
	_, err := ParseTaskRef([]string{"g"})
	if !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestParseTaskRef_Empty(t *testing.T) {
	_, err := ParseTaskRef(nil)
	if !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestParseTaskRef_UUID(t *testing.T) {
	id := "6F9619FF-8B86-4011-B42D-00C04FC964FF"
	ref, err := ParseTaskRef([]string{id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "6f9619ff-8b86-4011-b42d-00c04fc964ff" {
		t.Errorf("expected normalized id, got %q", ref.ID)
	}
}

func TestParseTaskRef_Invalid(t *testing.T) {
	tests := []struct {
		args []string
		msg  string
	}{
		{[]string{"x1"}, "invalid task reference: x1"},
		{[]string{"a1"}, "invalid task reference: a1"},
		{[]string{"d1x"}, "invalid task reference: d1x"},
		{[]string{"d", "x"}, "invalid task reference: d"},
		{[]string{"buy"}, "invalid task reference: buy"},
	}
	for _, tt := range tests {
		_, err := ParseTaskRef(tt.args)
		if !errors.Is(err, ErrInvalidTaskRef) {
			t.Errorf("%v: expected ErrInvalidTaskRef, got %v", tt.args, err)
			continue
		}
		if err.Error() != tt.msg {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.msg, err.Error())
		}
	}
}

func refFixture() []output.Ref {
	base := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	list := []service.Task{
		{ID: "11111111-1111-4111-8111-111111111111", Title: "Fix bug", IsImportant: true, IsUrgent: true, Status: service.StatusPending, CreatedAt: base.Add(4 * time.Minute)},
		{ID: "22222222-2222-4222-8222-222222222222", Title: "Plan", IsImportant: true, Status: service.StatusPending, CreatedAt: base.Add(3 * time.Minute)},
		{ID: "33333333-3333-4333-8333-333333333333", Title: "Read", Status: service.StatusPending, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "44444444-4444-4444-8444-444444444444", Title: "Shipped", IsUrgent: true, Status: service.StatusCompleted, CreatedAt: base.Add(1 * time.Minute)},
	}
	return output.Number(list, true)
}

func TestResolve(t *testing.T) {
	refs := refFixture()
	tests := []struct {
		arg   string
		title string
	}{
		{"1", "Fix bug"},
		{"2", "Plan"},
		{"3", "Read"},
		{"4", "Shipped"},
		{"d1", "Fix bug"},
		{"s1", "Plan"},
		{"e1", "Read"},
		{"c1", "Shipped"},
		{"33333333-3333-4333-8333-333333333333", "Read"},
	}
	for _, tt := range tests {
		ref, err := ParseTaskRef([]string{tt.arg})
		if err != nil {
			t.Fatalf("%s: parse: %v", tt.arg, err)
		}
		got, err := ref.Resolve(refs)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.arg, err)
			continue
		}
		if got.Task.Title != tt.title {
			t.Errorf("%s: expected %q, got %q", tt.arg, tt.title, got.Task.Title)
		}
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	refs := refFixture()
	for _, arg := range []string{"0", "5", "g1", "d2"} {
		ref, err := ParseTaskRef([]string{arg})
		if err != nil {
			t.Fatalf("%s: parse: %v", arg, err)
		}
		_, err = ref.Resolve(refs)
		if !errors.Is(err, ErrTaskOutOfRange) {
			t.Errorf("%s: expected ErrTaskOutOfRange, got %v", arg, err)
			continue
		}
		if want := "task number out of range: " + arg; err.Error() != want {
			t.Errorf("%s: expected %q, got %q", arg, want, err.Error())
		}
	}
}

func TestResolve_UnknownID(t *testing.T) {
	ref, _ := ParseTaskRef([]string{"99999999-9999-4999-8999-999999999999"})
	_, err := ref.Resolve(refFixture())
	if !errors.Is(err, tasks.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
