// Package appstate wires the process-wide application state store.
//
// It binds the generic state machinery to the concrete AppState shape and
// re-exports typed accessors, so the rest of the application never spells
// out the type parameters. No business logic lives here.
package appstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/custodesk-dev/custodesk/internal/customers"
	"github.com/custodesk-dev/custodesk/pkg/state"
)

// AppState is the global application state shape.
type AppState struct {
	Auth      AuthState
	Customers CustomersState
}

// AuthState tracks the signed-in user.
type AuthState struct {
	Username   string
	SignedIn   bool
	LoginCount int
}

// CustomersState tracks the loaded customer list and the current selection.
type CustomersState struct {
	Loaded     []customers.Customer
	SelectedID string
}

// Action types.
const (
	ActionLogin            = "auth/login"
	ActionLogout           = "auth/logout"
	ActionCustomersLoaded  = "customers/loaded"
	ActionCustomerSelected = "customers/selected"
)

// Action builders.

func Login(username string) state.Action {
	return state.Action{Type: ActionLogin, Payload: username}
}

func Logout() state.Action {
	return state.Action{Type: ActionLogout}
}

func CustomersLoaded(list []customers.Customer) state.Action {
	return state.Action{Type: ActionCustomersLoaded, Payload: list}
}

func CustomerSelected(id string) state.Action {
	return state.Action{Type: ActionCustomerSelected, Payload: id}
}

// reduce is the root reducer.
func reduce(s AppState, a state.Action) AppState {
	switch a.Type {
	case ActionLogin:
		if name, ok := a.Payload.(string); ok {
			s.Auth.Username = name
			s.Auth.SignedIn = true
			s.Auth.LoginCount++
		}
	case ActionLogout:
		s.Auth = AuthState{LoginCount: s.Auth.LoginCount}
	case ActionCustomersLoaded:
		if list, ok := a.Payload.([]customers.Customer); ok {
			s.Customers.Loaded = list
		}
	case ActionCustomerSelected:
		if id, ok := a.Payload.(string); ok {
			s.Customers.SelectedID = id
		}
	}
	return s
}

// Deps is the extra dependency value handed to listener effects.
type Deps struct {
	Repo   customers.Repository
	Logger *slog.Logger
}

// Typed aliases over the generic machinery.
type (
	Store       = state.Store[AppState]
	Middleware  = state.ListenerMiddleware[AppState, Deps]
	ListenerAPI = state.ListenerAPI[AppState, Deps]
	Predicate   = state.Predicate[AppState]
	Effect      = state.Effect[AppState, Deps]
)

// store and listening are the process-wide instances.
var (
	store     = state.New(AppState{}, reduce)
	listening = state.NewListenerMiddleware[AppState, Deps](Deps{Logger: slog.Default()})
)

func init() {
	listening.Attach(store)
}

// UseStore returns the process-wide store.
func UseStore() *Store {
	return store
}

// Current returns the current application state.
func Current() AppState {
	return store.State()
}

// Dispatch dispatches an action on the process-wide store.
func Dispatch(a state.Action) {
	store.Dispatch(a)
}

// Subscribe registers fn on the process-wide store.
func Subscribe(fn func(AppState)) func() {
	return store.Subscribe(fn)
}

// StartListening registers a side-effect listener on the process-wide
// middleware instance.
func StartListening(p Predicate, e Effect) func() {
	return listening.StartListening(p, e)
}

// SetDeps replaces the dependency value handed to listener effects.
// Call once at startup, before dispatching.
func SetDeps(d Deps) {
	listening.SetExtra(d)
}

var registerOnce sync.Once

// RegisterListeners installs the application's side-effect listeners.
// Idempotent; call after SetDeps so effects see the real dependencies.
func RegisterListeners() {
	registerOnce.Do(func() {
		StartListening(state.ActionOfType[AppState](ActionLogin), preloadCustomers)
	})
}

// preloadCustomers loads the customer list after a sign-in so the first
// page render already has data.
func preloadCustomers(ctx context.Context, _ state.Action, api *ListenerAPI) {
	deps := api.Extra()
	if deps.Repo == nil {
		return
	}
	list, err := deps.Repo.List(ctx)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.Warn("customer preload failed", "error", err)
		}
		return
	}
	api.Dispatch(CustomersLoaded(list))
}

// SelectedCustomer derives the currently selected customer from state.
func SelectedCustomer(s AppState) (customers.Customer, bool) {
	for _, c := range s.Customers.Loaded {
		if c.ID == s.Customers.SelectedID {
			return c, true
		}
	}
	return customers.Customer{}, false
}

// Listening returns the process-wide middleware, for Wait in shutdown paths.
func Listening() *Middleware {
	return listening
}
