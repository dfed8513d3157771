package credentials

import (
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/google/uuid"
)

// AzureFields is the service principal form.
type AzureFields struct {
	SubscriptionID string
	TenantID       string
	ClientID       string
	ClientSecret   string
}

func (f *AzureFields) Kind() catalog.Kind { return catalog.Azure }

func (f *AzureFields) slot(key string) *string {
	switch key {
	case "subscriptionId":
		return &f.SubscriptionID
	case "tenantId":
		return &f.TenantID
	case "clientId":
		return &f.ClientID
	case "clientSecret":
		return &f.ClientSecret
	}
	return nil
}

func (f *AzureFields) Set(key, value string) error {
	if key != "clientSecret" {
		value = strings.TrimSpace(value)
	}
	return setSlot(f, catalog.Azure, key, value)
}

func (f *AzureFields) Get(key string) (string, bool) { return getSlot(f, key) }

func (f *AzureFields) Validate() []apperr.Issue {
	out := required(catalog.Azure, f)
	for _, c := range []struct{ key, val, label string }{
		{"subscriptionId", f.SubscriptionID, "subscription id"},
		{"tenantId", f.TenantID, "tenant id"},
		{"clientId", f.ClientID, "client id"},
	} {
		if c.val == "" {
			continue
		}
		if err := uuid.Validate(c.val); err != nil {
			out = append(out, issue(c.key, c.label+" must be a GUID"))
		}
	}
	return out
}

func (f *AzureFields) Payload() map[string]string {
	p := f.Credentials()
	if f.ClientSecret != "" {
		p["clientSecret"] = redacted
	}
	return p
}

func (f *AzureFields) Credentials() map[string]string {
	return map[string]string{
		"subscriptionId": f.SubscriptionID,
		"tenantId":       f.TenantID,
		"clientId":       f.ClientID,
		"clientSecret":   f.ClientSecret,
	}
}
