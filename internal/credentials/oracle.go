package credentials

import (
	"encoding/pem"
	"regexp"
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
)

var ociFingerprintRe = regexp.MustCompile(`^(?i)([0-9a-f]{2}:){15}[0-9a-f]{2}$`)

// OracleFields is the API signing key form. The region is a single-choice
// selection held by the draft, not by this variant.
type OracleFields struct {
	Tenancy     string
	UserOCID    string
	Fingerprint string
	PrivateKey  string
}

func (f *OracleFields) Kind() catalog.Kind { return catalog.Oracle }

func (f *OracleFields) slot(key string) *string {
	switch key {
	case "tenancy":
		return &f.Tenancy
	case "userOcid":
		return &f.UserOCID
	case "fingerprint":
		return &f.Fingerprint
	case "privateKey":
		return &f.PrivateKey
	}
	return nil
}

func (f *OracleFields) Set(key, value string) error {
	if key != "privateKey" {
		value = strings.TrimSpace(value)
	}
	return setSlot(f, catalog.Oracle, key, value)
}

func (f *OracleFields) Get(key string) (string, bool) { return getSlot(f, key) }

func (f *OracleFields) Validate() []apperr.Issue {
	out := required(catalog.Oracle, f)
	if f.Tenancy != "" && !strings.HasPrefix(f.Tenancy, "ocid1.tenancy.") {
		out = append(out, issue("tenancy", "tenancy OCID must start with ocid1.tenancy."))
	}
	if f.UserOCID != "" && !strings.HasPrefix(f.UserOCID, "ocid1.user.") {
		out = append(out, issue("userOcid", "user OCID must start with ocid1.user."))
	}
	if f.Fingerprint != "" && !ociFingerprintRe.MatchString(f.Fingerprint) {
		out = append(out, issue("fingerprint", "fingerprint must be 16 colon-separated hex pairs"))
	}
	if strings.TrimSpace(f.PrivateKey) != "" {
		block, _ := pem.Decode([]byte(strings.TrimSpace(f.PrivateKey)))
		if block == nil || !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			out = append(out, issue("privateKey", "private key must be a PEM encoded private key"))
		}
	}
	return out
}

func (f *OracleFields) Payload() map[string]string {
	p := f.Credentials()
	if f.PrivateKey != "" {
		p["privateKey"] = redacted
	}
	return p
}

func (f *OracleFields) Credentials() map[string]string {
	return map[string]string{
		"tenancy":     f.Tenancy,
		"userOcid":    f.UserOCID,
		"fingerprint": strings.ToLower(f.Fingerprint),
		"privateKey":  f.PrivateKey,
	}
}
