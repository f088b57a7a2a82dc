package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
)

var (
	// errors
	ErrNotFound           = fmt.Errorf("user %w", core.ErrNotFound)
	ErrDuplicateEmail     = errors.New("a user with this email already exists")
	ErrDuplicateSchoolID  = errors.New("a user with this school id already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CheckUnique returns ErrDuplicateEmail or ErrDuplicateSchoolID when email or schoolID is already used in users.
// School ids are only compared when present on both sides.
func CheckUnique(users []User, email string, schoolID *string) error {
	email = core.CleanString(email, true /* lower */)
	sid := core.CleanStringPtr(schoolID)
	for _, usr := range users {
		if email != "" && strings.EqualFold(usr.Email, email) {
			return ErrDuplicateEmail
		}
		if sid != nil && usr.SchoolID != nil && usr.schoolID() == *sid {
			return ErrDuplicateSchoolID
		}
	}
	return nil
}

// UniquenessError converts the errors of CheckUnique into a *core.ValidationError.
func UniquenessError(err error) error {
	switch err {
	case nil:
		return nil
	case ErrDuplicateEmail:
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	case ErrDuplicateSchoolID:
		return core.NewValidationError(err, core.FieldError{Field: "schoolId", Error: err.Error()})
	default:
		return err
	}
}

// Directory is the merged list of seed and registered accounts.
// Only registered accounts are persisted, under core.KeyRegisteredUsers.
type Directory struct {
	mu     sync.RWMutex
	kv     core.KVStore
	logger core.Logger

	accounts   []User
	registered []User
}

func NewDirectory(ctx context.Context, kv core.KVStore, logger core.Logger) (*Directory, error) {
	dir := &Directory{
		kv:       kv,
		logger:   logger,
		accounts: SeedAccounts(),
	}

	var stored []User
	if _, err := core.LoadJSON(ctx, kv, core.KeyRegisteredUsers, &stored); err != nil {
		if !errors.Is(err, core.ErrCorruptValue) {
			return nil, errors.Wrap(err, "loading registered users")
		}
		logger.Warn("ignoring corrupted registered users", err)
		stored = nil
	}

	// merge, dropping registered accounts clashing by email or school id
	for _, usr := range stored {
		if err := CheckUnique(dir.accounts, usr.Email, usr.SchoolID); err != nil {
			logger.Debug("skipping duplicate registered user", map[string]interface{}{"id": usr.ID, "email": usr.Email})
			continue
		}
		dir.accounts = append(dir.accounts, usr)
		dir.registered = append(dir.registered, usr)
	}
	return dir, nil
}

// All returns every account, without secrets.
func (dir *Directory) All() []User {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	return CloneAll(dir.accounts, true)
}

// Registered returns the accounts created after start-up, without secrets.
func (dir *Directory) Registered() []User {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	return CloneAll(dir.registered, true)
}

func (dir *Directory) Count() int {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	return len(dir.accounts)
}

func (dir *Directory) Find(id string) (User, error) {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	if i := indexOf(dir.accounts, id); i >= 0 {
		return dir.accounts[i].Public(), nil
	}
	return User{}, ErrNotFound
}

// FindByEmail matches email case-insensitively.
func (dir *Directory) FindByEmail(email string) (User, error) {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	email = core.CleanString(email, true /* lower */)
	for _, usr := range dir.accounts {
		if strings.EqualFold(usr.Email, email) {
			return usr.Public(), nil
		}
	}
	return User{}, ErrNotFound
}

// Authenticate looks up the account matching identifier and secret.
// An identifier containing "@" is an email; otherwise it is the school id of a student.
func (dir *Directory) Authenticate(identifier, secret string) (User, error) {
	dir.mu.RLock()
	defer dir.mu.RUnlock()

	identifier = core.CleanString(identifier)
	byEmail := strings.Contains(identifier, "@")
	for _, usr := range dir.accounts {
		var match bool
		if byEmail {
			match = strings.EqualFold(usr.Email, identifier)
		} else {
			match = usr.IsStudent() && usr.SchoolID != nil && usr.schoolID() == identifier
		}
		if match && usr.Secret == secret {
			return usr.Public(), nil
		}
	}
	return User{}, ErrInvalidCredentials
}

// CheckUniqueness validates email and schoolID against every account.
func (dir *Directory) CheckUniqueness(email string, schoolID *string) error {
	dir.mu.RLock()
	defer dir.mu.RUnlock()
	return UniquenessError(CheckUnique(dir.accounts, email, schoolID))
}

// Add registers usr and persists the registered accounts.
// A missing ID or registration date is assigned.
func (dir *Directory) Add(ctx context.Context, usr User) (User, error) {
	usr = usr.Clone()
	usr.Clean()

	dir.mu.Lock()
	defer dir.mu.Unlock()

	if err := CheckUnique(dir.accounts, usr.Email, usr.SchoolID); err != nil {
		return User{}, UniquenessError(err)
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	if usr.RegistrationDate == nil {
		today := core.Today()
		usr.RegistrationDate = &today
	}

	registered := append(CloneAll(dir.registered, false), usr)
	if err := core.SaveJSON(ctx, dir.kv, core.KeyRegisteredUsers, registered); err != nil {
		return User{}, errors.Wrap(err, "saving registered users")
	}
	dir.registered = registered
	dir.accounts = append(dir.accounts, usr)
	return usr.Public(), nil
}

// Delete removes an account. Seed accounts come back on the next start.
func (dir *Directory) Delete(ctx context.Context, id string) error {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	i := indexOf(dir.accounts, id)
	if i < 0 {
		return ErrNotFound
	}
	if j := indexOf(dir.registered, id); j >= 0 {
		registered := make([]User, 0, len(dir.registered)-1)
		registered = append(registered, dir.registered[:j]...)
		registered = append(registered, dir.registered[j+1:]...)
		if err := core.SaveJSON(ctx, dir.kv, core.KeyRegisteredUsers, registered); err != nil {
			return errors.Wrap(err, "saving registered users")
		}
		dir.registered = registered
	}
	dir.accounts = append(dir.accounts[:i], dir.accounts[i+1:]...)
	return nil
}

func indexOf(users []User, id string) int {
	for i, usr := range users {
		if usr.ID == id {
			return i
		}
	}
	return -1
}
