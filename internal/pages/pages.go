// Package pages renders the application's HTML pages.
//
// Pages produce content fragments; Root wraps a fragment in the shared
// layout (navigation plus content hole). Handlers in the root package feed
// these functions with request data, so this package never touches HTTP.
package pages

import (
	"bytes"
	"html/template"

	"github.com/custodesk-dev/custodesk/internal/customers"
)

var (
	rootTmpl = template.Must(template.New("root").Parse(`<nav class="topnav">
  <a href="/customers">Customers</a>
  {{if .SignedIn}}<span class="user">{{.Username}}</span>{{else}}<a href="/login">Sign in</a>{{end}}
</nav>
<main>
{{.Content}}
</main>`))

	authTmpl = template.Must(template.New("auth").Parse(`<section class="auth">
  <h1>Sign in</h1>
  <form method="post" action="/api/login">
    <label>Username <input name="username" type="text" autocomplete="username"></label>
    <label>Password <input name="password" type="password" autocomplete="current-password"></label>
    <button type="submit">Sign in</button>
  </form>
</section>`))

	customersTmpl = template.Must(template.New("customers").Parse(`<section class="customers">
  <h1>Customers</h1>
  <table>
    <thead><tr><th>Name</th><th>Company</th><th>Email</th></tr></thead>
    <tbody>
    {{range .}}<tr>
      <td><a href="/customers/{{.ID}}">{{.Name}}</a></td>
      <td>{{.Company}}</td>
      <td>{{.Email}}</td>
    </tr>
    {{end}}</tbody>
  </table>
</section>`))

	customerTmpl = template.Must(template.New("customer").Parse(`<section class="customer">
  <h1>{{.Name}}</h1>
  <dl>
    <dt>Company</dt><dd>{{.Company}}</dd>
    <dt>Email</dt><dd>{{.Email}}</dd>
    <dt>Phone</dt><dd>{{.Phone}}</dd>
    <dt>Customer since</dt><dd>{{.CreatedAt.Format "2006-01-02"}}</dd>
  </dl>
  <p><a href="/customers">Back to customers</a></p>
</section>`))
)

// RootData is the layout's view model.
type RootData struct {
	Username string
	SignedIn bool
	Content  template.HTML
}

// Root wraps page content in the shared layout.
func Root(data RootData) (template.HTML, error) {
	return execute(rootTmpl, data)
}

// Auth renders the sign-in page.
func Auth() (template.HTML, error) {
	return execute(authTmpl, nil)
}

// Customers renders the customer list.
func Customers(list []customers.Customer) (template.HTML, error) {
	return execute(customersTmpl, list)
}

// Customer renders one customer's detail page.
func Customer(c customers.Customer) (template.HTML, error) {
	return execute(customerTmpl, c)
}

func execute(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
