package user

import (
	"github.com/trezcool/practicum/core"
)

// Role is the single role of an account.
type Role string

// Roles
const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var (
	AllRoles = []Role{RoleStudent, RoleInstructor, RoleSupervisor, RoleAdmin}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "Supervisor", Value: RoleSupervisor},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// User is an account. Secret is only kept on records of the account directory;
// every value handed out of a session carries an empty Secret.
type User struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Role             Role    `json:"role"`
	SchoolID         *string `json:"schoolId,omitempty"`
	RegistrationDate *string `json:"registrationDate,omitempty"` // YYYY-MM-DD
	Secret           string  `json:"password,omitempty"`
}

// Clone returns a copy of usr sharing no pointers with it.
func (usr User) Clone() User {
	usr.SchoolID = core.CopyStringPtr(usr.SchoolID)
	usr.RegistrationDate = core.CopyStringPtr(usr.RegistrationDate)
	return usr
}

// Public returns a copy of usr without its secret.
func (usr User) Public() User {
	c := usr.Clone()
	c.Secret = ""
	return c
}

func (usr User) IsStudent() bool    { return usr.Role == RoleStudent }
func (usr User) IsInstructor() bool { return usr.Role == RoleInstructor }
func (usr User) IsSupervisor() bool { return usr.Role == RoleSupervisor }
func (usr User) IsAdmin() bool      { return usr.Role == RoleAdmin }

// HasAnyRole reports whether usr has one of roles. No roles means any role.
func (usr User) HasAnyRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if usr.Role == role {
			return true
		}
	}
	return false
}

func (usr User) schoolID() string {
	if usr.SchoolID == nil {
		return ""
	}
	return *usr.SchoolID
}

// Clean normalizes the identifying fields of usr.
func (usr *User) Clean() {
	usr.Name = core.CleanString(usr.Name)
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	usr.SchoolID = core.CleanStringPtr(usr.SchoolID)
}

// CloneAll deep copies users, optionally stripping secrets.
func CloneAll(users []User, public bool) []User {
	out := make([]User, 0, len(users))
	for _, usr := range users {
		if public {
			out = append(out, usr.Public())
		} else {
			out = append(out, usr.Clone())
		}
	}
	return out
}

// Seed accounts: one per role, present on every fresh start.
const SeedSecret = "password123"

func SeedAccounts() []User {
	schoolID := "STU2025001"
	return []User{
		{ID: "1", Name: "Demo Student", Email: "student@example.com", Role: RoleStudent, SchoolID: &schoolID, Secret: SeedSecret},
		{ID: "2", Name: "Demo Instructor", Email: "instructor@example.com", Role: RoleInstructor, Secret: SeedSecret},
		{ID: "3", Name: "Demo Supervisor", Email: "supervisor@example.com", Role: RoleSupervisor, Secret: SeedSecret},
		{ID: "4", Name: "Demo Admin", Email: "admin@example.com", Role: RoleAdmin, Secret: SeedSecret},
	}
}

// NewAccount contains information needed to register a new User.
type NewAccount struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Secret   string  `json:"password" validate:"required"`
	Role     Role    `json:"role" validate:"required,role"`
	SchoolID *string `json:"schoolId" validate:"omitempty,schoolid"`
}

// Clean normalizes na before validation.
func (na *NewAccount) Clean() {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = Role(core.CleanString(string(na.Role), true /* lower */))
	na.SchoolID = core.CleanStringPtr(na.SchoolID)
}

// Validate cleans and validates na, then checks it against the accounts of dir.
func (na *NewAccount) Validate(v *core.Validator, dir *Directory) error {
	na.Clean()
	if err := v.Struct(na); err != nil {
		return err
	}
	return dir.CheckUniqueness(na.Email, na.SchoolID)
}

// User builds the account record of na. ID and registration date are assigned on creation.
func (na NewAccount) User() User {
	return User{
		Name:     na.Name,
		Email:    na.Email,
		Role:     na.Role,
		SchoolID: core.CopyStringPtr(na.SchoolID),
		Secret:   na.Secret,
	}
}
