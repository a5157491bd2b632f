package legal

import (
	"testing"
	"time"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParentProgress_Lock(t *testing.T) {
	tests := []struct {
		status SignatureStatus
		locked bool
	}{
		{SignatureNone, false},
		{SignaturePending, false},
		{SignatureSent, true},
		{SignatureSigned, true},
	}
	for _, tt := range tests {
		p := ParentProgress{CheckedKeys: []string{"risks"}, SignatureStatus: tt.status}
		if got := p.IsLocked("risks"); got != tt.locked {
			t.Errorf("status %q: expected locked=%v, got %v", tt.status, tt.locked, got)
		}
		if p.IsLocked("anesthesia") {
			t.Errorf("status %q: an unchecked item is never locked", tt.status)
		}
	}
}

func TestCaseStates(t *testing.T) {
	status := DocumentSignatureStatus{Acknowledged: map[Role][]string{Parent1: {"quote_read"}}}
	mc := MergeContext{
		GranularSignatures: true,
		Records:            []DocumentSignatureRecord{{ID: 1, DocumentType: FeesConsentQuote, Parent1Status: SignatureSent}},
	}
	vm := BuildDocumentVM(feesEntry(), status, mc)

	p1 := CaseStates(vm, Parent1)
	if len(p1) != 3 {
		t.Fatalf("expected 3 items for parent1, got %d", len(p1))
	}
	if !p1[0].Checked || !p1[0].Locked {
		t.Errorf("expected quote_read checked and locked, got %+v", p1[0])
	}
	if p1[1].Checked || p1[1].Locked {
		t.Errorf("expected fees_accepted open, got %+v", p1[1])
	}

	p2 := CaseStates(vm, Parent2)
	if len(p2) != 1 || p2[0].Key != "newsletter" {
		t.Errorf("expected only the optional item for parent2, got %+v", p2)
	}
}

func TestPendingKeys(t *testing.T) {
	status := DocumentSignatureStatus{Acknowledged: map[Role][]string{Parent2: {"risks"}}}
	got := PendingKeys(consentEntry(), status, Parent2)
	if len(got) != 2 || got[0] != "anesthesia" || got[1] != "photos" {
		t.Errorf("unexpected pending keys %v", got)
	}
	if got := PendingKeys(feesEntry(), status, Parent2); len(got) != 0 {
		t.Errorf("expected nothing pending for parent2 on fees quote, got %v", got)
	}
}
