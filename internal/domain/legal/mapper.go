package legal

// MergeContext carries the signature side of the merge.
type MergeContext struct {
	Records []DocumentSignatureRecord
	Legacy  *LegacyConsentSignature
	// GranularSignatures is set when the backend tracks one signature record
	// per document type. Without it only the informed consent can be signed,
	// through the legacy record.
	GranularSignatures bool
}

// BuildDocumentVM merges a catalog entry with its checklist status and the
// matching signature record.
func BuildDocumentVM(entry DocumentCatalogEntry, status DocumentSignatureStatus, mc MergeContext) DocumentVM {
	vm := DocumentVM{
		DocumentType:       entry.DocumentType,
		Title:              entry.Title,
		Version:            entry.Version,
		Cases:              entry.Cases,
		ByParent:           make(map[Role]ParentProgress, len(Roles)),
		SignatureSupported: mc.GranularSignatures || entry.DocumentType == InformedConsent,
	}
	if vm.Cases == nil {
		vm.Cases = []CaseItem{}
	}

	record, hasRecord := mc.record(entry.DocumentType)
	var legacy *LegacyConsentSignature
	if !hasRecord && entry.DocumentType == InformedConsent {
		legacy = mc.Legacy
	}

	switch {
	case hasRecord:
		id := record.ID
		vm.SignatureID = &id
		vm.FinalPDFAvailable = record.FinalPDFIdentifier != ""
		vm.SignedPDFAvailable = record.SignedPDFIdentifier != ""
		vm.EvidencePDFAvailable = record.EvidencePDFIdentifier != ""
	case legacy != nil:
		vm.SignedPDFAvailable = legacy.SignedPDFIdentifier != ""
		vm.EvidencePDFAvailable = legacy.EvidencePDFIdentifier != ""
	}

	for _, role := range Roles {
		p := progressFor(entry, status, role)

		var sig ParentSignature
		switch {
		case hasRecord:
			sig = record.Parent(role)
		case legacy != nil:
			sig = legacy.Parent(role)
		}
		p.SignatureStatus = sig.Status
		p.SignatureLink = sig.SignatureLink
		p.SentAt = sig.SentAt
		p.SignedAt = sig.SignedAt

		vm.ByParent[role] = p
	}
	return vm
}

// BuildDocumentVMs builds one view model per catalog entry, in catalog order.
func BuildDocumentVMs(catalog *Catalog, status *LegalStatus, mc MergeContext) []DocumentVM {
	if catalog == nil {
		return []DocumentVM{}
	}
	out := make([]DocumentVM, 0, len(catalog.Documents))
	for _, entry := range catalog.Documents {
		out = append(out, BuildDocumentVM(entry, status.Document(entry.DocumentType), mc))
	}
	return out
}

// DocumentComplete reports whether role has checked every required item of a
// document that requires at least one item from it.
func DocumentComplete(vm DocumentVM, role Role) bool {
	p := vm.Parent(role)
	return p.Total > 0 && p.CompletedCount == p.Total
}

// AllComplete reports whether every document is complete for every parent it
// requires something from. A catalog with no requirement at all is not
// complete.
func AllComplete(docs []DocumentVM) bool {
	required := false
	for _, vm := range docs {
		for _, role := range Roles {
			switch vm.Parent(role).Completion {
			case Incomplete:
				return false
			case Complete:
				required = true
			}
		}
	}
	return required
}

func (mc MergeContext) record(dt DocumentType) (DocumentSignatureRecord, bool) {
	if !mc.GranularSignatures {
		return DocumentSignatureRecord{}, false
	}
	for _, r := range mc.Records {
		if r.DocumentType == dt {
			return r, true
		}
	}
	return DocumentSignatureRecord{}, false
}

func progressFor(entry DocumentCatalogEntry, status DocumentSignatureStatus, role Role) ParentProgress {
	p := emptyProgress()

	checked := make(map[string]bool)
	for _, k := range status.Acknowledged[role] {
		if !checked[k] {
			checked[k] = true
			p.CheckedKeys = append(p.CheckedKeys, k)
		}
	}

	seen := make(map[string]bool)
	for _, c := range entry.Cases {
		if !c.RequiredFor(role) || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		p.Total++
		if checked[c.Key] {
			p.CompletedCount++
		} else {
			p.MissingKeys = append(p.MissingKeys, c.Key)
		}
	}

	switch {
	case p.Total == 0:
		p.Completion = NotApplicable
	case p.CompletedCount == p.Total:
		p.Completion = Complete
	default:
		p.Completion = Incomplete
	}
	return p
}
