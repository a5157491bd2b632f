package legal

// IsChecked reports whether key has been acknowledged.
func (p ParentProgress) IsChecked(key string) bool {
	for _, k := range p.CheckedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsLocked reports whether key can no longer be unchecked: it is checked and
// the parent's signature has been sent or completed.
func (p ParentProgress) IsLocked(key string) bool {
	return p.IsChecked(key) && p.SignatureStatus.Committed()
}

// CaseState is one checklist line as rendered for a parent.
type CaseState struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Checked  bool   `json:"checked"`
	Locked   bool   `json:"locked"`
}

// CaseStates lists the items that concern role: those required from it and
// the optional ones.
func CaseStates(vm DocumentVM, role Role) []CaseState {
	p := vm.Parent(role)
	out := make([]CaseState, 0, len(vm.Cases))
	for _, c := range vm.Cases {
		if c.Required && !c.RequiredFor(role) {
			continue
		}
		out = append(out, CaseState{
			Key:      c.Key,
			Label:    c.Label,
			Required: c.Required,
			Checked:  p.IsChecked(c.Key),
			Locked:   p.IsLocked(c.Key),
		})
	}
	return out
}

// PendingKeys returns the required items role has not checked yet, in catalog
// order.
func PendingKeys(entry DocumentCatalogEntry, status DocumentSignatureStatus, role Role) []string {
	return progressFor(entry, status, role).MissingKeys
}
