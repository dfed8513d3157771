package registration

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct{ got []notify.Notification }

func (r *recorder) Notify(k notify.Kind, title, msg string) {
	r.got = append(r.got, notify.Notification{Kind: k, Title: title, Message: msg})
}

func validForm() Form {
	return Form{FirstName: "John", Email: "j@x.com", Password: "p1", ConfirmPassword: "p1", AgreeToTerms: true}
}

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Form)
		code apperr.Code
	}{
		{"missing first name", func(f *Form) { f.FirstName = " " }, apperr.CodeFieldRequired},
		{"missing email", func(f *Form) { f.Email = "" }, apperr.CodeFieldRequired},
		{"bad email", func(f *Form) { f.Email = "not-an-email" }, apperr.CodeInvalidEmail},
		{"mismatch", func(f *Form) { f.ConfirmPassword = "p2" }, apperr.CodePasswordMismatch},
		{"terms", func(f *Form) { f.AgreeToTerms = false }, apperr.CodeTermsRequired},
		{"mismatch wins over terms", func(f *Form) { f.ConfirmPassword = "x"; f.AgreeToTerms = false }, apperr.CodePasswordMismatch},
		{"too long", func(f *Form) { f.Password = strings.Repeat("a", 73); f.ConfirmPassword = f.Password }, apperr.CodePasswordTooLong},
		{"length wins over email and mismatch", func(f *Form) { f.Password = strings.Repeat("a", 73); f.Email = "bad" }, apperr.CodePasswordTooLong},
		{"email wins over mismatch", func(f *Form) { f.Email = "bad"; f.ConfirmPassword = "x" }, apperr.CodeInvalidEmail},
		{"required wins over length", func(f *Form) { f.FirstName = ""; f.Password = strings.Repeat("a", 73) }, apperr.CodeFieldRequired},
	}
	for _, c := range cases {
		f := validForm()
		c.edit(&f)
		if got := apperr.CodeOf(Validate(f)); got != c.code {
			t.Fatalf("%s: got %s want %s", c.name, got, c.code)
		}
	}
	if err := Validate(validForm()); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}
}

func TestCollectNotifiesFailure(t *testing.T) {
	rec := &recorder{}
	c := New(rec, WithBcryptCost(bcrypt.MinCost))
	f := validForm()
	f.AgreeToTerms = false
	if _, err := c.Collect(f); !errors.Is(err, ErrTermsRequired) {
		t.Fatalf("expected terms error, got %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].Kind != notify.Error || rec.got[0].Title != "Terms required" {
		t.Fatalf("unexpected notifications %#v", rec.got)
	}
}

func TestCollectBuildsRecord(t *testing.T) {
	rec := &recorder{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var slept time.Duration
	c := New(rec,
		WithBcryptCost(bcrypt.MinCost),
		WithClock(func() time.Time { return fixed }),
		WithDelay(2*time.Second),
		WithSleep(func(d time.Duration) { slept += d }),
	)
	f := validForm()
	f.Email = " J@X.com "
	r, err := c.Collect(f)
	if err != nil {
		t.Fatal(err)
	}
	if r.FirstName != "John" || r.Email != "j@x.com" || !r.TermsAccepted || !r.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected record %#v", r)
	}
	if strings.Contains(r.PasswordHash, "p1") || !r.CheckPassword("p1") || r.CheckPassword("p2") {
		t.Fatal("password must be stored as a bcrypt hash")
	}
	if slept != 2*time.Second {
		t.Fatalf("expected account creation delay, slept %v", slept)
	}
	if len(rec.got) != 1 || rec.got[0].Kind != notify.Info {
		t.Fatalf("expected one info notification, got %#v", rec.got)
	}
}
