package dossier

import "github.com/pediconsent/portal/internal/domain/legal"

// ToDossierVM maps the backend payload. Guardians with an unknown role are
// dropped; the first guardian of each role wins.
func ToDossierVM(p Payload) VM {
	vm := VM{Child: Child{
		FirstName: p.Child.FirstName,
		LastName:  p.Child.LastName,
		BirthDate: p.Child.BirthDate,
		Sex:       p.Child.Sex,
		Notes:     p.Child.Notes,
	}}
	for _, gp := range p.Guardians {
		g := &Guardian{
			Role:         gp.Role,
			FirstName:    gp.FirstName,
			LastName:     gp.LastName,
			Email:        gp.Email,
			Phone:        gp.Phone,
			Relationship: gp.Relationship,
		}
		switch {
		case gp.Role == legal.Parent1 && vm.Parent1 == nil:
			vm.Parent1 = g
		case gp.Role == legal.Parent2 && vm.Parent2 == nil:
			vm.Parent2 = g
		}
	}
	return vm
}

func VMToForm(vm VM) Form {
	f := Form{
		ChildFirstName: vm.Child.FirstName,
		ChildLastName:  vm.Child.LastName,
		ChildBirthDate: vm.Child.BirthDate,
		ChildSex:       vm.Child.Sex,
		ChildNotes:     vm.Child.Notes,
	}
	if g := vm.Parent1; g != nil {
		f.Parent1FirstName = g.FirstName
		f.Parent1LastName = g.LastName
		f.Parent1Email = g.Email
		f.Parent1Phone = g.Phone
		f.Parent1Relationship = g.Relationship
	}
	if g := vm.Parent2; g != nil {
		f.HasParent2 = true
		f.Parent2FirstName = g.FirstName
		f.Parent2LastName = g.LastName
		f.Parent2Email = g.Email
		f.Parent2Phone = g.Phone
		f.Parent2Relationship = g.Relationship
	}
	return f
}

// FormToPayload is the inverse of VMToForm followed by ToDossierVM. Parent 1
// is sent once any of its fields is filled, parent 2 only when enabled.
func FormToPayload(f Form) Payload {
	p := Payload{
		Child: ChildPayload{
			FirstName: f.ChildFirstName,
			LastName:  f.ChildLastName,
			BirthDate: f.ChildBirthDate,
			Sex:       f.ChildSex,
			Notes:     f.ChildNotes,
		},
		Guardians: []GuardianPayload{},
	}
	p1 := GuardianPayload{
		Role:         legal.Parent1,
		FirstName:    f.Parent1FirstName,
		LastName:     f.Parent1LastName,
		Email:        f.Parent1Email,
		Phone:        f.Parent1Phone,
		Relationship: f.Parent1Relationship,
	}
	if p1 != (GuardianPayload{Role: legal.Parent1}) {
		p.Guardians = append(p.Guardians, p1)
	}
	if f.HasParent2 {
		p.Guardians = append(p.Guardians, GuardianPayload{
			Role:         legal.Parent2,
			FirstName:    f.Parent2FirstName,
			LastName:     f.Parent2LastName,
			Email:        f.Parent2Email,
			Phone:        f.Parent2Phone,
			Relationship: f.Parent2Relationship,
		})
	}
	return p
}
