package customers

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/ui"
)

// contactBindings holds form values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type contactBindings struct {
	email   string
	subject string
	message string
}

// contactForm asks support to reach out to one customer.
type contactForm struct {
	form     *huh.Form
	fb       *contactBindings
	customer model.Customer
}

func newContactForm(c model.Customer, width, height int) *contactForm {
	cf := &contactForm{
		fb:       &contactBindings{email: c.Email},
		customer: c,
	}
	cf.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&cf.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Subject").
				Placeholder("Contact request for "+c.Name).
				CharLimit(140).
				Value(&cf.fb.subject),
			huh.NewText().
				Title("Message").
				CharLimit(5000).
				Value(&cf.fb.message),
		),
	).WithWidth(ui.FormWidth(width)).WithHeight(ui.FormHeight(height))
	return cf
}

func (cf *contactForm) request() model.ContactRequest {
	return model.ContactRequest{
		Email:   strings.TrimSpace(cf.fb.email),
		Subject: strings.TrimSpace(cf.fb.subject),
		Message: strings.TrimSpace(cf.fb.message),
	}
}

func (cf *contactForm) update(msg tea.Msg) tea.Cmd {
	mdl, cmd := cf.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		cf.form = f
	}
	return cmd
}

func validateEmail(s string) error {
	if !model.ValidEmail(strings.TrimSpace(s)) {
		return errors.New("invalid email address")
	}
	return nil
}
