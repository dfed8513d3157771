// Package catalog describes the cloud providers a user can connect during onboarding.
// The catalog is static and read-only; dispatch is keyed by Kind, never by display name.
package catalog

import (
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
)

// Kind identifies a supported provider. The set is closed.
type Kind int

const (
	AWS Kind = iota + 1
	Azure
	GCP
	Oracle
)

// String returns the stable slug used on the wire.
func (k Kind) String() string {
	switch k {
	case AWS:
		return "aws"
	case Azure:
		return "azure"
	case GCP:
		return "gcp"
	case Oracle:
		return "oracle"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind converts an external slug into a Kind. Only boundaries call this.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aws":
		return AWS, nil
	case "azure":
		return Azure, nil
	case "gcp":
		return GCP, nil
	case "oracle":
		return Oracle, nil
	}
	return 0, apperr.New(apperr.CodeUnknownProvider, "Unknown provider", "unsupported provider "+s)
}

// FieldKind is the input shape a credential field expects.
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldSecret    FieldKind = "secret"
	FieldMultiline FieldKind = "multiline"
	FieldChoice    FieldKind = "choice" // one of the descriptor regions
	FieldReadOnly  FieldKind = "readonly"
)

// Field describes one provider-specific credential input.
type Field struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty"`
}

// RegionMode says how the dialog offers the default region list.
type RegionMode string

const (
	RegionsNone   RegionMode = "none"
	RegionsMulti  RegionMode = "multi"
	RegionsSingle RegionMode = "single"
)

// Descriptor is the static metadata of one provider.
type Descriptor struct {
	Kind        Kind       `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Regions     []string   `json:"regions"`
	RegionMode  RegionMode `json:"regionMode"`
	Fields      []Field    `json:"fields"`
}

// HasRegion reports whether region is one of the descriptor's default regions.
func (d Descriptor) HasRegion(region string) bool {
	return d.RegionIndex(region) >= 0
}

// RegionIndex returns the position of region in the default list, or -1.
func (d Descriptor) RegionIndex(region string) int {
	for i, r := range d.Regions {
		if r == region {
			return i
		}
	}
	return -1
}

// Field returns the field schema for key.
func (d Descriptor) Field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields lists the keys the form must collect besides the handle.
func (d Descriptor) RequiredFields() []string {
	out := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Required {
			out = append(out, f.Key)
		}
	}
	return out
}

var kinds = []Kind{AWS, Azure, GCP, Oracle}

var descriptors = map[Kind]Descriptor{
	AWS: {
		Kind:        AWS,
		Name:        "Amazon Web Services",
		Description: "Connect your AWS accounts for comprehensive cloud management and cost optimization.",
		Regions:     []string{"us-east-1", "us-west-2", "eu-west-1", "ap-southeast-1"},
		RegionMode:  RegionsMulti,
		Fields: []Field{
			{Key: "roleName", Label: "Role Name", Kind: FieldText, Required: true, Placeholder: "CloudGateRole",
				Help: "Name of the role that will be created in your AWS account."},
			{Key: "externalId", Label: "External ID", Kind: FieldReadOnly,
				Help: "Add this value to the role trust policy; it prevents confused-deputy access."},
			{Key: "accountId", Label: "AWS Account ID", Kind: FieldText, Required: true, Placeholder: "123456789012"},
			{Key: "roleArn", Label: "Role ARN", Kind: FieldText, Required: true, Placeholder: "arn:aws:iam::123456789012:role/CloudGateRole"},
		},
	},
	Azure: {
		Kind:        Azure,
		Name:        "Microsoft Azure",
		Description: "Integrate Azure subscriptions for unified cloud governance and security monitoring.",
		Regions:     []string{"East US", "West Europe", "Southeast Asia", "Australia East"},
		RegionMode:  RegionsNone,
		Fields: []Field{
			{Key: "subscriptionId", Label: "Subscription ID", Kind: FieldText, Required: true, Placeholder: "12345678-1234-1234-1234-123456789012"},
			{Key: "tenantId", Label: "Tenant ID", Kind: FieldText, Required: true, Placeholder: "87654321-4321-4321-4321-210987654321"},
			{Key: "clientId", Label: "Application (Client) ID", Kind: FieldText, Required: true, Placeholder: "abcd1234-ab12-cd34-ef56-123456789012"},
			{Key: "clientSecret", Label: "Client Secret", Kind: FieldSecret, Required: true},
		},
	},
	GCP: {
		Kind:        GCP,
		Name:        "Google Cloud Platform",
		Description: "Connect GCP projects for automated compliance and resource optimization.",
		Regions:     []string{"us-central1", "europe-west1", "asia-southeast1", "australia-southeast1"},
		RegionMode:  RegionsNone,
		Fields: []Field{
			{Key: "projectId", Label: "Project ID", Kind: FieldText, Required: true, Placeholder: "my-gcp-project-123456"},
			{Key: "serviceAccountKey", Label: "Service Account Key (JSON)", Kind: FieldMultiline, Required: true},
		},
	},
	Oracle: {
		Kind:        Oracle,
		Name:        "Oracle Cloud",
		Description: "Integrate OCI tenancies for enterprise-grade cloud management and analytics.",
		Regions:     []string{"us-phoenix-1", "eu-frankfurt-1", "ap-tokyo-1", "uk-london-1"},
		RegionMode:  RegionsSingle,
		Fields: []Field{
			{Key: "tenancy", Label: "Tenancy OCID", Kind: FieldText, Required: true, Placeholder: "ocid1.tenancy.oc1..aaaaaaaaxxxxxx"},
			{Key: "userOcid", Label: "User OCID", Kind: FieldText, Required: true, Placeholder: "ocid1.user.oc1..aaaaaaaaxxxxxx"},
			{Key: "fingerprint", Label: "Key Fingerprint", Kind: FieldText, Required: true, Placeholder: "12:34:56:78:90:ab:cd:ef:12:34:56:78:90:ab:cd:ef"},
			{Key: "region", Label: "Region", Kind: FieldChoice, Required: true},
			{Key: "privateKey", Label: "Private Key", Kind: FieldMultiline, Required: true},
		},
	},
}

// Kinds returns every provider kind in display order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Size is the total number of providers, the n of the progress formula.
func Size() int { return len(kinds) }

// Lookup returns the descriptor for k. Returned slices are copies.
func Lookup(k Kind) (Descriptor, bool) {
	d, ok := descriptors[k]
	if !ok {
		return Descriptor{}, false
	}
	d.Regions = append([]string(nil), d.Regions...)
	d.Fields = append([]Field(nil), d.Fields...)
	return d, true
}

// MustLookup is Lookup for kinds already known to be valid.
func MustLookup(k Kind) Descriptor {
	d, ok := Lookup(k)
	if !ok {
		panic("catalog: unknown kind " + k.String())
	}
	return d
}

// All returns every descriptor in display order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, MustLookup(k))
	}
	return out
}
