package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"golang.org/x/oauth2/google"
)

var gcpProjectRe = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

var errKeyDecode = errors.New("decode key file")

// GCPFields is the service account key form.
type GCPFields struct {
	ProjectID         string
	ServiceAccountKey string
}

func (f *GCPFields) Kind() catalog.Kind { return catalog.GCP }

func (f *GCPFields) slot(key string) *string {
	switch key {
	case "projectId":
		return &f.ProjectID
	case "serviceAccountKey":
		return &f.ServiceAccountKey
	}
	return nil
}

func (f *GCPFields) Set(key, value string) error {
	if key == "projectId" {
		value = strings.TrimSpace(value)
	}
	return setSlot(f, catalog.GCP, key, value)
}

func (f *GCPFields) Get(key string) (string, bool) { return getSlot(f, key) }

// serviceAccount decodes the pasted key. The oauth2 loader checks the key type
// and required members; it does not verify the key material.
func (f *GCPFields) serviceAccount() (email, project string, err error) {
	var meta struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(f.ServiceAccountKey), &meta); err != nil {
		return "", "", fmt.Errorf("%w: %w", errKeyDecode, err)
	}
	cfg, err := google.JWTConfigFromJSON([]byte(f.ServiceAccountKey))
	if err != nil {
		return "", "", err
	}
	return cfg.Email, meta.ProjectID, nil
}

func (f *GCPFields) Validate() []apperr.Issue {
	out := required(catalog.GCP, f)
	if f.ProjectID != "" && !gcpProjectRe.MatchString(f.ProjectID) {
		out = append(out, issue("projectId", "project id must be 6-30 lowercase letters, digits or hyphens"))
	}
	if strings.TrimSpace(f.ServiceAccountKey) != "" {
		_, project, err := f.serviceAccount()
		switch {
		case errors.Is(err, errKeyDecode):
			out = append(out, issue("serviceAccountKey", "service account key is not valid JSON"))
		case err != nil:
			out = append(out, issue("serviceAccountKey", "service account key is not a valid key file"))
		case f.ProjectID != "" && project != "" && project != f.ProjectID:
			out = append(out, issue("serviceAccountKey", "service account key belongs to project "+project))
		}
	}
	return out
}

func (f *GCPFields) Payload() map[string]string {
	p := f.Credentials()
	if f.ServiceAccountKey != "" {
		p["serviceAccountKey"] = redacted
	}
	return p
}

func (f *GCPFields) Credentials() map[string]string {
	p := map[string]string{"projectId": f.ProjectID, "serviceAccountKey": f.ServiceAccountKey}
	if f.ServiceAccountKey != "" {
		if email, _, err := f.serviceAccount(); err == nil {
			p["clientEmail"] = email
		}
	}
	return p
}
