// Package registration collects the signup form and produces the immutable
// registration record that starts onboarding.
package registration

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

// Form is the raw signup input.
type Form struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Company         string `json:"company"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	AgreeToTerms    bool   `json:"agreeToTerms"`
}

// Record is created once per session on a valid signup. It is passed by value
// and nothing in this module mutates it.
type Record struct {
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	Company       string    `json:"company"`
	PasswordHash  string    `json:"-"`
	TermsAccepted bool      `json:"termsAccepted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CheckPassword reports whether password matches the stored hash.
func (r Record) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) == nil
}

// DisplayName is the greeting name for the connect step.
func (r Record) DisplayName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

var (
	ErrPasswordMismatch = apperr.New(apperr.CodePasswordMismatch, "Password mismatch", "Please ensure both passwords match.")
	ErrTermsRequired    = apperr.New(apperr.CodeTermsRequired, "Terms required", "Please agree to the terms and conditions.")
)

// Collector validates signup forms. The zero value is not usable; call New.
type Collector struct {
	notifier notify.Notifier
	cost     int
	delay    time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

type Option func(*Collector)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option { return func(c *Collector) { c.cost = cost } }

// WithDelay sets the local account-creation latency. It cannot be cancelled.
func WithDelay(d time.Duration) Option { return func(c *Collector) { c.delay = d } }

func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

func WithSleep(sleep func(time.Duration)) Option { return func(c *Collector) { c.sleep = sleep } }

func New(n notify.Notifier, opts ...Option) *Collector {
	if n == nil {
		n = notify.Discard
	}
	c := &Collector{notifier: n, cost: bcrypt.DefaultCost, now: time.Now, sleep: time.Sleep}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate checks the form without side effects. Checks run in a fixed order and
// the first failure wins.
func Validate(f Form) error {
	var missing []apperr.Issue
	if strings.TrimSpace(f.FirstName) == "" {
		missing = append(missing, apperr.Issue{Field: "firstName", Message: "first name is required"})
	}
	if strings.TrimSpace(f.Email) == "" {
		missing = append(missing, apperr.Issue{Field: "email", Message: "email is required"})
	}
	if f.Password == "" {
		missing = append(missing, apperr.Issue{Field: "password", Message: "password is required"})
	}
	if len(missing) > 0 {
		e := apperr.New(apperr.CodeFieldRequired, "Missing field", "Please fill in all required fields.")
		e.Issues = missing
		return e
	}
	if len(f.Password) > 72 {
		return apperr.New(apperr.CodePasswordTooLong, "Password too long", "Passwords are limited to 72 bytes.")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return apperr.New(apperr.CodeInvalidEmail, "Invalid email", "Please enter a valid email address.")
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !f.AgreeToTerms {
		return ErrTermsRequired
	}
	return nil
}

// Collect validates f, reports the outcome to the notifier and builds a Record.
// A validation failure returns an *apperr.Error and no record.
func (c *Collector) Collect(f Form) (Record, error) {
	if err := Validate(f); err != nil {
		e := err.(*apperr.Error)
		c.notifier.Notify(notify.Error, e.Title, e.Message)
		return Record{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), c.cost)
	if err != nil {
		return Record{}, fmt.Errorf("hash password: %w", err)
	}
	if c.delay > 0 {
		c.sleep(c.delay)
	}
	rec := Record{
		FirstName:     strings.TrimSpace(f.FirstName),
		LastName:      strings.TrimSpace(f.LastName),
		Email:         strings.ToLower(strings.TrimSpace(f.Email)),
		Company:       strings.TrimSpace(f.Company),
		PasswordHash:  string(hash),
		TermsAccepted: true,
		CreatedAt:     c.now().UTC(),
	}
	c.notifier.Notify(notify.Info, "Account created!", "Welcome aboard. Let's connect your cloud accounts.")
	return rec, nil
}
