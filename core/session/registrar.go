package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

// Registrar creates accounts in a Directory and runs the RegistrationHook of their role.
type Registrar struct {
	mu        sync.RWMutex
	dir       *user.Directory
	validator *core.Validator
	logger    core.Logger
	hooks     map[user.Role]RegistrationHook
}

func NewRegistrar(dir *user.Directory, validator *core.Validator, logger core.Logger) *Registrar {
	return &Registrar{
		dir:       dir,
		validator: validator,
		logger:    logger,
		hooks:     make(map[user.Role]RegistrationHook),
	}
}

// SetHook registers the hook run when an account with role registers. A nil hook removes it.
func (r *Registrar) SetHook(role user.Role, hook RegistrationHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		delete(r.hooks, role)
		return
	}
	r.hooks[role] = hook
}

// Register validates na, runs the role hook, then adds the account to the directory.
// When the hook fails nothing is registered; when the directory fails the hook is rolled back.
func (r *Registrar) Register(ctx context.Context, na user.NewAccount) (user.User, error) {
	if err := na.Validate(r.validator, r.dir); err != nil {
		return user.User{}, err
	}

	usr := na.User()
	usr.ID = uuid.NewString()
	today := core.Today()
	usr.RegistrationDate = &today

	r.mu.RLock()
	hook := r.hooks[usr.Role]
	r.mu.RUnlock()

	if hook != nil {
		if err := hook.Register(ctx, usr.Public()); err != nil {
			return user.User{}, errors.Wrapf(err, "registering %s", usr.Role)
		}
	}

	created, err := r.dir.Add(ctx, usr)
	if err != nil {
		if hook != nil {
			if rbErr := hook.Rollback(ctx, usr.Public()); rbErr != nil {
				r.logger.Error("rolling back registration hook", rbErr, map[string]interface{}{"id": usr.ID})
			}
		}
		return user.User{}, err
	}
	return created, nil
}
