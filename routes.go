package custodesk

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/custodesk-dev/custodesk/internal/appstate"
	"github.com/custodesk-dev/custodesk/internal/customers"
	"github.com/custodesk-dev/custodesk/internal/pages"
)

// sessionCookie names the sign-in session cookie.
const sessionCookie = "custodesk_session"

// registerRoutes installs the application route table:
//
//	/login                      sign-in page (no layout)
//	/                           redirect to /customers
//	/customers                  customer list, under the root layout
//	/customers/{customerID}     customer detail, under the root layout
//	POST /api/login             sign in
//	POST /api/logout            sign out
func registerRoutes(a *App) {
	a.Page("/login", a.authPage)
	a.Redirect("/", "/customers")
	a.Page("/customers", a.customersPage, a.rootLayout)
	a.Page("/customers/{customerID}", a.customerPage, a.rootLayout)

	a.API(http.MethodPost, "/api/login", a.loginAPI)
	a.API(http.MethodPost, "/api/logout", a.logoutAPI)
}

// rootLayout wraps page content in the shared navigation chrome.
func (a *App) rootLayout(ctx *Ctx, content template.HTML) (template.HTML, error) {
	auth := appstate.UseStore().State().Auth
	return pages.Root(pages.RootData{
		Username: auth.Username,
		SignedIn: auth.SignedIn,
		Content:  content,
	})
}

func (a *App) authPage(ctx *Ctx) (template.HTML, error) {
	ctx.SetTitle("Sign in")
	return pages.Auth()
}

func (a *App) customersPage(ctx *Ctx) (template.HTML, error) {
	list, err := a.repo.List(ctx.Context())
	if err != nil {
		return "", InternalError(err)
	}

	appstate.Dispatch(appstate.CustomersLoaded(list))
	ctx.SetTitle("Customers")
	return pages.Customers(list)
}

func (a *App) customerPage(ctx *Ctx) (template.HTML, error) {
	id := ctx.Param("customerID")

	c, err := a.repo.Get(ctx.Context(), id)
	if err != nil {
		var nf customers.NotFoundError
		if errors.As(err, &nf) {
			return "", NotFound("customer not found")
		}
		return "", InternalError(err)
	}

	appstate.Dispatch(appstate.CustomerSelected(id))
	ctx.SetTitle(c.Name)
	return pages.Customer(c)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
	SignedIn bool   `json:"signed_in"`
}

// loginAPI accepts JSON or the sign-in form. Credentials are only checked
// for presence; real verification is outside this application's scope.
func (a *App) loginAPI(ctx *Ctx) (any, error) {
	var req loginRequest
	isForm := strings.HasPrefix(ctx.Request().Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	if isForm {
		if err := ctx.Request().ParseForm(); err != nil {
			return nil, BadRequest(err)
		}
		req.Username = ctx.Request().PostFormValue("username")
		req.Password = ctx.Request().PostFormValue("password")
	} else {
		if err := readJSONBody(ctx, &req); err != nil {
			return nil, err
		}
	}

	if req.Username == "" || req.Password == "" {
		return nil, BadRequestf("username and password are required")
	}

	appstate.Dispatch(appstate.Login(req.Username))
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    req.Username,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if isForm {
		ctx.Redirect("/customers", http.StatusSeeOther)
		return nil, nil
	}
	return loginResponse{Username: req.Username, SignedIn: true}, nil
}

func (a *App) logoutAPI(ctx *Ctx) (any, error) {
	appstate.Dispatch(appstate.Logout())
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	ctx.SetStatus(http.StatusNoContent)
	return nil, nil
}
