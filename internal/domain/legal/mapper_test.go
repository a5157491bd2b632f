package legal

import (
	"testing"
	"time"
)

func feesEntry() DocumentCatalogEntry {
	return DocumentCatalogEntry{
		DocumentType: FeesConsentQuote,
		Title:        "Devis et consentement aux honoraires",
		Version:      "v2",
		Cases: []CaseItem{
			{Key: "quote_read", Label: "J'ai lu le devis", Required: true, RequiredRoles: []Role{Parent1}},
			{Key: "fees_accepted", Label: "J'accepte les honoraires", Required: true, RequiredRoles: []Role{Parent1}},
			{Key: "newsletter", Label: "Recevoir les informations", Required: false, RequiredRoles: []Role{Parent1, Parent2}},
		},
	}
}

func consentEntry() DocumentCatalogEntry {
	return DocumentCatalogEntry{
		DocumentType: InformedConsent,
		Title:        "Consentement éclairé",
		Version:      "v5",
		Cases: []CaseItem{
			{Key: "risks", Label: "Risques expliqués", Required: true, RequiredRoles: []Role{Parent1, Parent2}},
			{Key: "anesthesia", Label: "Anesthésie expliquée", Required: true, RequiredRoles: []Role{Parent1, Parent2}},
			{Key: "photos", Label: "Photographies", Required: true, RequiredRoles: []Role{Parent2}},
		},
	}
}

func TestBuildDocumentVM_FeesQuoteParent2NotApplicable(t *testing.T) {
	status := DocumentSignatureStatus{
		DocumentType: FeesConsentQuote,
		Acknowledged: map[Role][]string{Parent1: {"quote_read", "fees_accepted"}},
	}
	vm := BuildDocumentVM(feesEntry(), status, MergeContext{GranularSignatures: true})

	if !DocumentComplete(vm, Parent1) {
		t.Error("expected fees_consent_quote complete for parent1")
	}
	if DocumentComplete(vm, Parent2) {
		t.Error("parent2 has nothing to check and must not be reported complete")
	}
	p2 := vm.Parent(Parent2)
	if p2.Total != 0 || p2.Completion != NotApplicable {
		t.Errorf("expected parent2 not applicable with total 0, got %+v", p2)
	}
	if vm.Parent(Parent1).Completion != Complete {
		t.Errorf("expected parent1 complete, got %s", vm.Parent(Parent1).Completion)
	}
}

func TestBuildDocumentVM_CountsRequiredIntersectionOnly(t *testing.T) {
	status := DocumentSignatureStatus{
		DocumentType: InformedConsent,
		Acknowledged: map[Role][]string{
			Parent1: {"risks", "risks", "photos", "unknown", "anesthesia"},
			Parent2: {"risks"},
		},
	}
	vm := BuildDocumentVM(consentEntry(), status, MergeContext{})

	p1 := vm.Parent(Parent1)
	if p1.Total != 2 || p1.CompletedCount != 2 {
		t.Errorf("parent1: expected 2/2, got %d/%d", p1.CompletedCount, p1.Total)
	}
	if len(p1.CheckedKeys) != 4 {
		t.Errorf("expected duplicate keys to be dropped, got %v", p1.CheckedKeys)
	}

	p2 := vm.Parent(Parent2)
	if p2.Total != 3 || p2.CompletedCount != 1 {
		t.Errorf("parent2: expected 1/3, got %d/%d", p2.CompletedCount, p2.Total)
	}
	if len(p2.MissingKeys) != 2 || p2.MissingKeys[0] != "anesthesia" || p2.MissingKeys[1] != "photos" {
		t.Errorf("unexpected missing keys %v", p2.MissingKeys)
	}
	if p2.Completion != Incomplete {
		t.Errorf("expected incomplete, got %s", p2.Completion)
	}
}

func TestBuildDocumentVM_CompletedNeverExceedsTotal(t *testing.T) {
	entries := []DocumentCatalogEntry{feesEntry(), consentEntry(), {DocumentType: SurgicalAuthorizationMinor}}
	acks := [][]string{nil, {}, {"risks", "anesthesia", "photos", "quote_read", "fees_accepted", "newsletter", "x"}}

	for _, entry := range entries {
		for _, a := range acks {
			status := DocumentSignatureStatus{Acknowledged: map[Role][]string{Parent1: a, Parent2: a}}
			vm := BuildDocumentVM(entry, status, MergeContext{})
			for _, r := range Roles {
				p := vm.Parent(r)
				if p.CompletedCount > p.Total {
					t.Errorf("%s/%s: completed %d > total %d", entry.DocumentType, r, p.CompletedCount, p.Total)
				}
				requires := false
				for _, c := range entry.Cases {
					if c.RequiredFor(r) {
						requires = true
					}
				}
				if !requires && p.Total != 0 {
					t.Errorf("%s/%s: expected total 0", entry.DocumentType, r)
				}
				if DocumentComplete(vm, r) != (p.Total > 0 && p.CompletedCount == p.Total) {
					t.Errorf("%s/%s: DocumentComplete disagrees with counts", entry.DocumentType, r)
				}
			}
		}
	}
}

func TestBuildDocumentVM_UsesGranularRecord(t *testing.T) {
	sent := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mc := MergeContext{
		GranularSignatures: true,
		Records: []DocumentSignatureRecord{
			{ID: 11, DocumentType: FeesConsentQuote},
			{
				ID:                   12,
				DocumentType:         InformedConsent,
				Parent1Status:        SignatureSent,
				Parent1SignatureLink: "https://sign.example.test/abc",
				Parent1SentAt:        &sent,
				FinalPDFIdentifier:   "final-12.pdf",
			},
		},
		Legacy: &LegacyConsentSignature{Parent1Status: SignatureSigned},
	}

	vm := BuildDocumentVM(consentEntry(), DocumentSignatureStatus{}, mc)
	if vm.SignatureID == nil || *vm.SignatureID != 12 {
		t.Fatalf("expected record 12, got %v", vm.SignatureID)
	}
	p1 := vm.Parent(Parent1)
	if p1.SignatureStatus != SignatureSent || p1.SignatureLink == "" || p1.SentAt == nil {
		t.Errorf("unexpected parent1 signature %+v", p1)
	}
	if vm.Parent(Parent2).SignatureStatus != SignatureNone {
		t.Errorf("expected no parent2 signature, got %q", vm.Parent(Parent2).SignatureStatus)
	}
	if !vm.FinalPDFAvailable || vm.SignedPDFAvailable || vm.EvidencePDFAvailable {
		t.Errorf("unexpected pdf flags %+v", vm)
	}
	if !vm.SignatureSupported {
		t.Error("expected signature supported")
	}
}

func TestBuildDocumentVM_LegacyFallbackOnlyForInformedConsent(t *testing.T) {
	signed := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mc := MergeContext{
		Legacy: &LegacyConsentSignature{
			Parent1Status:       SignatureSigned,
			Parent1SignedAt:     &signed,
			SignedPDFIdentifier: "consent-signed.pdf",
		},
	}

	consent := BuildDocumentVM(consentEntry(), DocumentSignatureStatus{}, mc)
	if consent.Parent(Parent1).SignatureStatus != SignatureSigned {
		t.Errorf("expected legacy status on informed consent, got %q", consent.Parent(Parent1).SignatureStatus)
	}
	if !consent.SignedPDFAvailable {
		t.Error("expected signed pdf from legacy identifier")
	}
	if consent.SignatureID != nil {
		t.Error("legacy record has no document signature id")
	}
	if !consent.SignatureSupported {
		t.Error("informed consent is always signable")
	}

	fees := BuildDocumentVM(feesEntry(), DocumentSignatureStatus{}, mc)
	if fees.Parent(Parent1).SignatureStatus != SignatureNone {
		t.Errorf("legacy record must not leak into %s", fees.DocumentType)
	}
	if fees.SignatureSupported {
		t.Error("fees quote is not signable without granular signatures")
	}
}

func TestBuildDocumentVM_RecordsIgnoredWithoutGranularSignatures(t *testing.T) {
	mc := MergeContext{Records: []DocumentSignatureRecord{{ID: 3, DocumentType: InformedConsent, Parent1Status: SignatureSent}}}
	vm := BuildDocumentVM(consentEntry(), DocumentSignatureStatus{}, mc)
	if vm.SignatureID != nil || vm.Parent(Parent1).SignatureStatus != SignatureNone {
		t.Errorf("expected granular record to be ignored, got %+v", vm)
	}
}

func TestDocumentVM_ParentDefaults(t *testing.T) {
	var vm DocumentVM
	p := vm.Parent(Parent1)
	if p.CheckedKeys == nil || p.MissingKeys == nil {
		t.Error("expected non-nil key slices")
	}
	if p.Completion != NotApplicable || p.SignatureStatus != SignatureNone {
		t.Errorf("unexpected defaults %+v", p)
	}
}

func TestBuildDocumentVMs_KeepsCatalogOrder(t *testing.T) {
	catalog := &Catalog{Documents: []DocumentCatalogEntry{feesEntry(), consentEntry()}}
	docs := BuildDocumentVMs(catalog, nil, MergeContext{})
	if len(docs) != 2 || docs[0].DocumentType != FeesConsentQuote || docs[1].DocumentType != InformedConsent {
		t.Errorf("unexpected order %v", docs)
	}
	if got := BuildDocumentVMs(nil, nil, MergeContext{}); got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestAllComplete(t *testing.T) {
	status := &LegalStatus{Documents: []DocumentSignatureStatus{
		{DocumentType: FeesConsentQuote, Acknowledged: map[Role][]string{Parent1: {"quote_read", "fees_accepted"}}},
	}}
	docs := BuildDocumentVMs(&Catalog{Documents: []DocumentCatalogEntry{feesEntry()}}, status, MergeContext{})
	if !AllComplete(docs) {
		t.Error("expected fees quote to be complete overall")
	}

	docs = BuildDocumentVMs(&Catalog{Documents: []DocumentCatalogEntry{feesEntry(), consentEntry()}}, status, MergeContext{})
	if AllComplete(docs) {
		t.Error("expected incomplete consent to block")
	}

	if AllComplete(nil) {
		t.Error("no documents is not complete")
	}
}

func TestSignatureStatus_JSON(t *testing.T) {
	b, err := SignatureNone.MarshalJSON()
	if err != nil || string(b) != "null" {
		t.Errorf("expected null, got %s (%v)", b, err)
	}
	var s SignatureStatus
	if err := s.UnmarshalJSON([]byte(`"sent"`)); err != nil || s != SignatureSent {
		t.Errorf("expected sent, got %q (%v)", s, err)
	}
	if err := s.UnmarshalJSON([]byte("null")); err != nil || s != SignatureNone {
		t.Errorf("expected none, got %q (%v)", s, err)
	}
}
