package pages

import (
	"strings"
	"testing"
	"time"

	"github.com/custodesk-dev/custodesk/internal/customers"
)

func TestRootSignedOut(t *testing.T) {
	html, err := Root(RootData{Content: "<p>body</p>"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	if !strings.Contains(s, `<a href="/login">Sign in</a>`) {
		t.Error("expected sign-in link when signed out")
	}
	if !strings.Contains(s, "<p>body</p>") {
		t.Error("content fragment not embedded")
	}
}

func TestRootSignedIn(t *testing.T) {
	html, err := Root(RootData{Username: "ada", SignedIn: true})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	if !strings.Contains(s, `<span class="user">ada</span>`) {
		t.Error("expected username in nav")
	}
	if strings.Contains(s, "/login") {
		t.Error("signed-in layout must not show sign-in link")
	}
}

func TestCustomersTable(t *testing.T) {
	html, err := Customers([]customers.Customer{
		{ID: "c-1", Name: "Ada Byron", Company: "Analytical Engines Ltd", Email: "ada@analytical.example"},
		{ID: "c-2", Name: "Grace Hopper", Company: "FlowMatic Systems", Email: "grace@flowmatic.example"},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	for _, want := range []string{
		`<a href="/customers/c-1">Ada Byron</a>`,
		`<a href="/customers/c-2">Grace Hopper</a>`,
		"FlowMatic Systems",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in rendered table", want)
		}
	}
}

func TestCustomerDetail(t *testing.T) {
	html, err := Customer(customers.Customer{
		Name:      "Ada Byron",
		Company:   "Analytical Engines Ltd",
		Email:     "ada@analytical.example",
		Phone:     "+44 20 7946 0101",
		CreatedAt: time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	if !strings.Contains(s, "<h1>Ada Byron</h1>") {
		t.Error("missing customer name heading")
	}
	if !strings.Contains(s, "2024-03-12") {
		t.Error("missing formatted creation date")
	}
}

func TestValuesAreEscaped(t *testing.T) {
	html, err := Customers([]customers.Customer{
		{ID: "c-1", Name: "<script>alert(1)</script>", Company: "Evil Co"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Error("customer name not escaped")
	}
}

func TestAuthForm(t *testing.T) {
	html, err := Auth()
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	if !strings.Contains(s, `action="/api/login"`) {
		t.Error("form must post to /api/login")
	}
	if !strings.Contains(s, `name="username"`) || !strings.Contains(s, `name="password"`) {
		t.Error("form missing credential inputs")
	}
}
