package credentials

import (
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
)

// Fields is the provider-specific part of a draft. Each provider has its own
// variant carrying only its own inputs.
type Fields interface {
	Kind() catalog.Kind
	// Set assigns one input by its catalog key.
	Set(key, value string) error
	Get(key string) (string, bool)
	// Validate runs offline, shape-only checks. It never contacts the provider.
	Validate() []apperr.Issue
	// Payload is the display form of the inputs, safe for views and logs.
	// Secrets are redacted.
	Payload() map[string]string
	// Credentials is what the connector authenticates with, secrets included.
	Credentials() map[string]string
}

const redacted = "[redacted]"

// NewFields returns the empty variant for kind. externalID seeds the AWS trust token.
func NewFields(kind catalog.Kind, externalID string) (Fields, error) {
	switch kind {
	case catalog.AWS:
		return &AWSFields{ExternalID: externalID}, nil
	case catalog.Azure:
		return &AzureFields{}, nil
	case catalog.GCP:
		return &GCPFields{}, nil
	case catalog.Oracle:
		return &OracleFields{}, nil
	}
	return nil, apperr.New(apperr.CodeUnknownProvider, "Unknown provider", "unsupported provider "+kind.String())
}

// slots is implemented by every variant; it maps catalog keys onto struct fields.
type slots interface {
	slot(key string) *string
}

func setSlot(f slots, kind catalog.Kind, key, value string) error {
	p := f.slot(key)
	if p == nil {
		return unknownField(kind, key)
	}
	*p = value
	return nil
}

func getSlot(f slots, key string) (string, bool) {
	p := f.slot(key)
	if p == nil {
		return "", false
	}
	return *p, true
}

func unknownField(kind catalog.Kind, key string) error {
	return apperr.New(apperr.CodeUnknownField, "Unknown field", kind.String()+" has no field "+key)
}

// required reports an issue for every required text input left blank. Choice
// inputs are region selections and are checked by the dialog.
func required(kind catalog.Kind, f slots) []apperr.Issue {
	var out []apperr.Issue
	for _, fd := range catalog.MustLookup(kind).Fields {
		if !fd.Required || fd.Kind == catalog.FieldChoice {
			continue
		}
		if p := f.slot(fd.Key); p != nil && strings.TrimSpace(*p) == "" {
			out = append(out, apperr.Issue{Field: fd.Key, Message: fd.Label + " is required"})
		}
	}
	return out
}

func issue(field, msg string) apperr.Issue { return apperr.Issue{Field: field, Message: msg} }
