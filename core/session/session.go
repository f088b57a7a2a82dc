// Package session holds the authenticated identity of the current client and persists it under
// core.KeySessionUser so that it survives a restart.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/student"
	"github.com/trezcool/practicum/core/user"
)

var (
	// errors
	ErrInvalidCredentials = user.ErrInvalidCredentials
	ErrMissingDeps        = errors.New("session: missing dependencies")
)

type State int

// States
const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Deps holds the collaborators of a Context. Latency defaults to core.NoLatency
// and Validator to user.NewValidator().
type Deps struct {
	KV        core.KVStore
	Directory *user.Directory
	Students  *student.Store
	Latency   core.Latency
	Logger    core.Logger
	Validator *core.Validator
}

// Context is the authentication state machine:
// Unauthenticated -> Authenticating -> Authenticated, and back on logout.
// It stays Authenticating while any login or registration is in flight, then settles
// on the current identity: a failed attempt never brings back an earlier one.
type Context struct {
	mu       sync.RWMutex
	state    State
	usr      *user.User
	inFlight int

	kv        core.KVStore
	dir       *user.Directory
	latency   core.Latency
	logger    core.Logger
	registrar *Registrar

	changes core.Broadcaster
}

// New restores the persisted session, if any. A corrupted session marker, or one whose account
// is gone from the directory, is dropped with a warning.
func New(ctx context.Context, deps Deps) (*Context, error) {
	if deps.KV == nil || deps.Directory == nil || deps.Logger == nil {
		return nil, ErrMissingDeps
	}
	if deps.Latency == nil {
		deps.Latency = core.NoLatency
	}
	if deps.Validator == nil {
		deps.Validator = user.NewValidator()
	}

	sess := &Context{
		kv:        deps.KV,
		dir:       deps.Directory,
		latency:   deps.Latency,
		logger:    deps.Logger,
		registrar: NewRegistrar(deps.Directory, deps.Validator, deps.Logger),
	}
	if deps.Students != nil {
		sess.registrar.SetHook(user.RoleStudent, StudentHook(deps.Students))
	}

	var usr *user.User
	if _, err := core.LoadJSON(ctx, deps.KV, core.KeySessionUser, &usr); err != nil {
		if !errors.Is(err, core.ErrCorruptValue) {
			return nil, errors.Wrap(err, "restoring session")
		}
		deps.Logger.Warn("dropping corrupted session", err)
		if err := deps.KV.Remove(ctx, core.KeySessionUser); err != nil {
			return nil, errors.Wrap(err, "removing session")
		}
		usr = nil
	}
	if usr != nil {
		if _, err := deps.Directory.Find(usr.ID); err != nil {
			deps.Logger.Warn("dropping session of unknown account", err, map[string]interface{}{"id": usr.ID})
			if err := deps.KV.Remove(ctx, core.KeySessionUser); err != nil {
				return nil, errors.Wrap(err, "removing session")
			}
			usr = nil
		}
	}
	if usr != nil {
		pub := usr.Public()
		sess.usr = &pub
		sess.state = Authenticated
	}
	return sess, nil
}

// SetHook registers the hook run when an account with role registers. A nil hook removes it.
func (sess *Context) SetHook(role user.Role, hook RegistrationHook) {
	sess.registrar.SetHook(role, hook)
}

func (sess *Context) State() State {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.state
}

// User returns the authenticated identity, without its secret.
func (sess *Context) User() (user.User, bool) {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.usr == nil {
		return user.User{}, false
	}
	return sess.usr.Clone(), true
}

func (sess *Context) IsAuthenticated() bool {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.usr != nil
}

// Subscribe registers l to be called after every state change.
func (sess *Context) Subscribe(l core.Listener) (unsubscribe func()) {
	return sess.changes.Subscribe(l)
}

// Login authenticates with an email, or with the school id of a student.
// It fails with ErrInvalidCredentials when no account matches both identifier and secret.
func (sess *Context) Login(ctx context.Context, identifier, secret string) (user.User, error) {
	sess.begin()
	defer sess.settle()

	if err := sess.latency.Wait(ctx); err != nil {
		return user.User{}, err
	}
	usr, err := sess.dir.Authenticate(identifier, secret)
	if err != nil {
		return user.User{}, err
	}
	if err := sess.authenticate(ctx, usr); err != nil {
		return user.User{}, err
	}
	sess.logger.Info("user logged in", map[string]interface{}{"id": usr.ID, "role": usr.Role})
	return usr, nil
}

// Register creates an account and authenticates as it.
// Duplicates fail with user.ErrDuplicateEmail or user.ErrDuplicateSchoolID (wrapped in a *core.ValidationError).
// When the hook of the account role fails, nothing is registered and its error is returned.
func (sess *Context) Register(ctx context.Context, na user.NewAccount) (user.User, error) {
	sess.begin()
	defer sess.settle()

	if err := sess.latency.Wait(ctx); err != nil {
		return user.User{}, err
	}
	created, err := sess.registrar.Register(ctx, na)
	if err != nil {
		return user.User{}, err
	}
	if err := sess.authenticate(ctx, created); err != nil {
		return user.User{}, err
	}
	sess.logger.Info("user registered", map[string]interface{}{"id": created.ID, "role": created.Role})
	return created, nil
}

// Logout clears the identity and the persisted session marker.
func (sess *Context) Logout(ctx context.Context) error {
	sess.mu.Lock()
	if err := sess.kv.Remove(ctx, core.KeySessionUser); err != nil {
		sess.mu.Unlock()
		return errors.Wrap(err, "removing session")
	}
	changed := sess.usr != nil
	sess.usr = nil
	if sess.inFlight == 0 {
		changed = changed || sess.state != Unauthenticated
		sess.state = Unauthenticated
	}
	sess.mu.Unlock()

	if changed {
		sess.changes.Notify()
	}
	return nil
}

// begin enters Authenticating for one more operation in flight.
func (sess *Context) begin() {
	sess.mu.Lock()
	sess.inFlight++
	sess.state = Authenticating
	sess.mu.Unlock()
	sess.changes.Notify()
}

// settle ends an operation started with begin. The last one in flight leaves Authenticating
// for the state of the current identity.
func (sess *Context) settle() {
	sess.mu.Lock()
	sess.inFlight--
	if sess.inFlight == 0 {
		sess.state = Unauthenticated
		if sess.usr != nil {
			sess.state = Authenticated
		}
	}
	sess.mu.Unlock()
	sess.changes.Notify()
}

// authenticate persists usr as the current identity. The state is left to settle.
func (sess *Context) authenticate(ctx context.Context, usr user.User) error {
	usr = usr.Public()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := core.SaveJSON(ctx, sess.kv, core.KeySessionUser, usr); err != nil {
		return errors.Wrap(err, "saving session")
	}
	sess.usr = &usr
	return nil
}
