package credentials

import (
	"regexp"
	"strings"

	"github.com/arencloud/cloudgate/internal/apperr"
	"github.com/arencloud/cloudgate/internal/catalog"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

var (
	awsAccountRe  = regexp.MustCompile(`^\d{12}$`)
	awsRoleNameRe = regexp.MustCompile(`^[\w+=,.@-]{1,64}$`)
)

// AWSFields is the cross-account trust role form.
type AWSFields struct {
	RoleName   string
	ExternalID string
	AccountID  string
	RoleARN    string
}

func (f *AWSFields) Kind() catalog.Kind { return catalog.AWS }

func (f *AWSFields) slot(key string) *string {
	switch key {
	case "roleName":
		return &f.RoleName
	case "externalId":
		return &f.ExternalID
	case "accountId":
		return &f.AccountID
	case "roleArn":
		return &f.RoleARN
	}
	return nil
}

func (f *AWSFields) Set(key, value string) error {
	if key == "externalId" {
		return apperr.New(apperr.CodeReadOnlyField, "Read-only field", "the external id is issued by the platform")
	}
	return setSlot(f, catalog.AWS, key, strings.TrimSpace(value))
}

func (f *AWSFields) Get(key string) (string, bool) { return getSlot(f, key) }

func (f *AWSFields) Validate() []apperr.Issue {
	out := required(catalog.AWS, f)
	if f.RoleName != "" && !awsRoleNameRe.MatchString(f.RoleName) {
		out = append(out, issue("roleName", "role name may contain up to 64 letters, digits and +=,.@_-"))
	}
	if f.AccountID != "" && !awsAccountRe.MatchString(f.AccountID) {
		out = append(out, issue("accountId", "AWS account id must be 12 digits"))
	}
	if f.RoleARN != "" {
		a, err := arn.Parse(f.RoleARN)
		switch {
		case err != nil:
			out = append(out, issue("roleArn", "role ARN is not a valid ARN"))
		case a.Service != "iam" || !strings.HasPrefix(a.Resource, "role/"):
			out = append(out, issue("roleArn", "role ARN must reference an IAM role"))
		case f.AccountID != "" && a.AccountID != f.AccountID:
			out = append(out, issue("roleArn", "role ARN belongs to a different account"))
		case f.RoleName != "" && !strings.HasSuffix(a.Resource, "/"+f.RoleName):
			out = append(out, issue("roleArn", "role ARN does not name role "+f.RoleName))
		}
	}
	if f.ExternalID == "" {
		out = append(out, issue("externalId", "external id was not issued"))
	}
	return out
}

// Credentials equal the payload: the AWS form holds no secret.
func (f *AWSFields) Credentials() map[string]string { return f.Payload() }

func (f *AWSFields) Payload() map[string]string {
	return map[string]string{
		"roleName":   f.RoleName,
		"externalId": f.ExternalID,
		"accountId":  f.AccountID,
		"roleArn":    f.RoleARN,
	}
}
