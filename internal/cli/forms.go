package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/onboarding"
	"github.com/arencloud/cloudgate/internal/registration"
)

// finishChoice is the provider picker value that ends the connect step.
const finishChoice = "finish"

func required(label string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return errors.New(label + " is required")
		}
		return nil
	}
}

// signupForm binds the account fields to f. Cross-field rules stay with the
// collector so the wizard and the API report the same errors.
func signupForm(f *registration.Form) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&f.FirstName).Validate(required("First name")),
			huh.NewInput().Title("Last name").Value(&f.LastName),
			huh.NewInput().Title("Email").Placeholder("you@company.com").Value(&f.Email).Validate(required("Email")),
			huh.NewInput().Title("Company").Value(&f.Company),
		).Title("Account Setup"),
		huh.NewGroup(
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&f.Password).Validate(required("Password")),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&f.ConfirmPassword),
			huh.NewConfirm().Title("I agree to the terms and conditions").Affirmative("Agree").Negative("Decline").Value(&f.AgreeToTerms),
		),
	)
}

// providerOptions lists the providers still to connect, followed by the
// finish entry once at least one is connected.
func providerOptions(st onboarding.State) []huh.Option[string] {
	done := map[catalog.Kind]bool{}
	for _, k := range st.Connected {
		done[k] = true
	}
	var opts []huh.Option[string]
	for _, d := range catalog.All() {
		if !done[d.Kind] {
			opts = append(opts, huh.NewOption(d.Name, d.Kind.String()))
		}
	}
	if len(st.Connected) > 0 {
		opts = append(opts, huh.NewOption("Finish setup", finishChoice))
	}
	return opts
}

// draft holds wizard answers for one dialog until they are applied.
type draft struct {
	desc       catalog.Descriptor
	handle     string
	values     map[string]*string
	regions    []string
	options    credentials.Options
	copyExtID  bool
	externalID string
}

func newDraft(d *credentials.Dialog) *draft {
	dr := &draft{
		desc:       d.Descriptor(),
		handle:     d.Handle(),
		values:     map[string]*string{},
		regions:    d.Regions(),
		options:    d.Options(),
		externalID: d.ExternalID(),
	}
	for _, f := range dr.desc.Fields {
		v, _ := d.Field(f.Key)
		dr.values[f.Key] = &v
	}
	return dr
}

// form renders the draft as huh groups built from the provider descriptor.
func (dr *draft) form() *huh.Form {
	fields := []huh.Field{
		huh.NewNote().Title(dr.desc.Name).Description(dr.desc.Description),
		huh.NewInput().Title("Connection name").Placeholder("production-" + dr.desc.Kind.String()).
			Value(&dr.handle).Validate(required("Connection name")),
	}
	for _, f := range dr.desc.Fields {
		v := dr.values[f.Key]
		switch f.Kind {
		case catalog.FieldText:
			fields = append(fields, huh.NewInput().Title(f.Label).Placeholder(f.Placeholder).Description(f.Help).Value(v))
		case catalog.FieldSecret:
			fields = append(fields, huh.NewInput().Title(f.Label).EchoMode(huh.EchoModePassword).Value(v))
		case catalog.FieldMultiline:
			fields = append(fields, huh.NewText().Title(f.Label).Lines(6).Value(v))
		case catalog.FieldChoice:
			fields = append(fields, huh.NewSelect[string]().Title(f.Label).Options(huh.NewOptions(dr.desc.Regions...)...).Value(v))
		case catalog.FieldReadOnly:
			fields = append(fields,
				huh.NewNote().Title(f.Label).Description(*v+"\n"+f.Help),
				huh.NewConfirm().Title("Copy "+f.Label+" to clipboard?").Value(&dr.copyExtID),
			)
		}
	}
	groups := []*huh.Group{huh.NewGroup(fields...)}

	adv := []huh.Field{}
	if dr.desc.RegionMode == catalog.RegionsMulti {
		adv = append(adv, huh.NewMultiSelect[string]().Title("Regions").
			Description("Only the selected regions are synced").
			Options(huh.NewOptions(dr.desc.Regions...)...).Value(&dr.regions))
	}
	adv = append(adv,
		huh.NewConfirm().Title("Auto sync").Value(&dr.options.AutoSync),
		huh.NewConfirm().Title("Cost optimization").Value(&dr.options.CostOptimization),
		huh.NewConfirm().Title("Security monitoring").Value(&dr.options.SecurityMonitoring),
	)
	groups = append(groups, huh.NewGroup(adv...).Title("Advanced options"))
	return huh.NewForm(groups...)
}

// apply writes the draft into d. Read-only inputs are skipped and the region
// selection is rebuilt from scratch.
func (dr *draft) apply(d *credentials.Dialog) error {
	if err := d.SetHandle(dr.handle); err != nil {
		return err
	}
	for _, f := range dr.desc.Fields {
		if f.Kind == catalog.FieldReadOnly {
			continue
		}
		if err := d.SetField(f.Key, *dr.values[f.Key]); err != nil {
			return err
		}
	}
	if dr.desc.RegionMode == catalog.RegionsMulti {
		if err := d.ClearRegions(); err != nil {
			return err
		}
		for _, r := range dr.regions {
			if err := d.ToggleRegion(r); err != nil {
				return err
			}
		}
	}
	return d.SetOptions(dr.options)
}
