package models

// Guardian is one parent or guardian attached to a student.
type Guardian struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty"`
}

// StudentInput is the payload for creating or updating a student.
type StudentInput struct {
	UID       string     `json:"uid,omitempty" validate:"omitempty,alphanum,max=32"`
	Name      string     `json:"name" validate:"required,max=120"`
	Class     string     `json:"class" validate:"required,max=40"`
	Gender    string     `json:"gender,omitempty" validate:"omitempty,oneof=Male Female"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Guardians []Guardian `json:"guardians,omitempty" validate:"dive"`
}

// Record converts the input into the record shape used by the local snapshot.
func (s StudentInput) Record() Record {
	r := Record{"name": s.Name, "class": s.Class}
	if s.UID != "" {
		r["uid"] = s.UID
	}
	if s.Gender != "" {
		r["gender"] = s.Gender
	}
	if s.Email != "" {
		r["email"] = s.Email
	}
	if s.Phone != "" {
		r["phone"] = s.Phone
	}
	if len(s.Guardians) > 0 {
		guardians := make([]any, len(s.Guardians))
		for i, g := range s.Guardians {
			guardians[i] = map[string]any{"name": g.Name, "phone": g.Phone, "email": g.Email, "relationship": g.Relationship}
		}
		r["guardians"] = guardians
	}
	return r
}
