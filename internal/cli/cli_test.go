package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/arencloud/cloudgate/internal/clipboard"
	"github.com/arencloud/cloudgate/internal/credentials"
	"github.com/arencloud/cloudgate/internal/notify"
	"github.com/arencloud/cloudgate/internal/onboarding"
	"github.com/arencloud/cloudgate/internal/registration"
)

func newSession(t *testing.T) *onboarding.Session {
	t.Helper()
	s := onboarding.New(onboarding.Config{
		Collector: registration.New(notify.Discard, registration.WithBcryptCost(bcrypt.MinCost)),
		Dialog: credentials.Config{
			Connector: credentials.Simulated{},
			Tokens:    credentials.FixedExternalID(credentials.PlaceholderExternalID),
			Clipboard: &clipboard.Memory{},
		},
	})
	if _, err := s.Signup(registration.Form{FirstName: "John", Email: "j@x.com", Password: "p1", ConfirmPassword: "p1", AgreeToTerms: true}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDraftApplyConnectsAWS(t *testing.T) {
	s := newSession(t)
	d, err := s.OpenDialog(catalog.AWS)
	if err != nil {
		t.Fatal(err)
	}
	dr := newDraft(d)
	if dr.externalID != credentials.PlaceholderExternalID {
		t.Fatalf("external id=%q", dr.externalID)
	}
	dr.handle = "prod"
	*dr.values["roleName"] = "CloudGateRole"
	dr.regions = []string{"eu-west-1", "us-east-1"}
	dr.options.AutoSync = true
	if err := dr.apply(d); err != nil {
		t.Fatal(err)
	}
	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := credentials.Result{
		Kind:    catalog.AWS,
		Handle:  "prod",
		Regions: []string{"us-east-1", "eu-west-1"},
		Options: credentials.Options{AutoSync: true, CostOptimization: true, SecurityMonitoring: true},
	}
	res.ConnectedAt = want.ConnectedAt
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestDraftApplyKeepsEmptyRegionSelection(t *testing.T) {
	s := newSession(t)
	d, _ := s.OpenDialog(catalog.AWS)
	if err := d.SelectAllRegions(); err != nil {
		t.Fatal(err)
	}
	dr := newDraft(d)
	dr.handle = "prod"
	dr.regions = nil
	if err := dr.apply(d); err != nil {
		t.Fatal(err)
	}
	if got := d.Regions(); len(got) != 0 || d.RegionSummary() != "Select regions" {
		t.Fatalf("an empty selection must stay empty, got %v", got)
	}
}

func TestDraftApplyOracleRegion(t *testing.T) {
	s := newSession(t)
	d, _ := s.OpenDialog(catalog.Oracle)
	dr := newDraft(d)
	dr.handle = "oci"
	*dr.values["region"] = "ap-tokyo-1"
	if err := dr.apply(d); err != nil {
		t.Fatal(err)
	}
	if got := d.Regions(); len(got) != 1 || got[0] != "ap-tokyo-1" {
		t.Fatalf("regions=%v", got)
	}
	*dr.values["region"] = "mars-1"
	if err := dr.apply(d); err == nil {
		t.Fatal("unknown region must be rejected")
	}
}

func TestProviderOptions(t *testing.T) {
	st := onboarding.State{}
	if got := len(providerOptions(st)); got != catalog.Size() {
		t.Fatalf("fresh options=%d", got)
	}
	st.Connected = []catalog.Kind{catalog.Azure}
	opts := providerOptions(st)
	var values []string
	for _, o := range opts {
		values = append(values, o.Value)
	}
	want := []string{"aws", "gcp", "oracle", finishChoice}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}
}

func TestRenderProgress(t *testing.T) {
	s := newSession(t)
	out := renderProgress(newBar(), s.State())
	if !strings.Contains(out, "Step 2 of 3: Connect Providers") || !strings.Contains(out, "0/4 connected") {
		t.Fatalf("render=%q", out)
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer(&buf).Notify(notify.Info, "Account created!", "Welcome")
	if !strings.Contains(buf.String(), "Account created!") {
		t.Fatalf("printed=%q", buf.String())
	}
}

func TestProvidersCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := runProviders(cmd, nil); err != nil {
		t.Fatal(err)
	}
	for _, d := range catalog.All() {
		if !strings.Contains(buf.String(), d.Name) {
			t.Fatalf("missing %s in %q", d.Name, buf.String())
		}
	}

	buf.Reset()
	providersJSON = true
	defer func() { providersJSON = false }()
	if err := runProviders(cmd, nil); err != nil {
		t.Fatal(err)
	}
	var list []catalog.Descriptor
	if err := json.Unmarshal(buf.Bytes(), &list); err != nil || len(list) != catalog.Size() {
		t.Fatalf("json list=%v err=%v", list, err)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "cloudgate ") {
		t.Fatalf("version=%q", buf.String())
	}
}
