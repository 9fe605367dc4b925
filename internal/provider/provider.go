// Package provider describes the cloud CLIs the gateway mediates: their
// binaries, command prefixes, and the stderr patterns that identify
// authentication failures.
package provider

import "strings"

// Kind identifies a supported cloud provider CLI.
type Kind string

const (
	AWS   Kind = "aws"
	GCP   Kind = "gcp"
	Azure Kind = "azure"
)

// Kinds lists every supported provider.
func Kinds() []Kind {
	return []Kind{AWS, GCP, Azure}
}

// ParseKind maps a user-supplied provider name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aws":
		return AWS, true
	case "gcp", "google", "gcloud":
		return GCP, true
	case "azure", "az":
		return Azure, true
	}
	return "", false
}

// Prefixes returns the command prefix tokens for the provider. A command
// belongs to the provider when its first token is one of these.
func (k Kind) Prefixes() []string {
	switch k {
	case AWS:
		return []string{"aws"}
	case GCP:
		return []string{"gcloud", "gsutil"}
	case Azure:
		return []string{"az"}
	}
	return nil
}

// Binary returns the executable checked at gateway start. GCP installs
// gsutil alongside gcloud, so gcloud stands in for both.
func (k Kind) Binary() string {
	switch k {
	case AWS:
		return "aws"
	case GCP:
		return "gcloud"
	case Azure:
		return "az"
	}
	return ""
}

// HasPrefix reports whether the first token of args matches one of the
// provider's prefixes.
func (k Kind) HasPrefix(args []string) bool {
	if len(args) == 0 {
		return false
	}
	first := strings.ToLower(args[0])
	for _, p := range k.Prefixes() {
		if first == p {
			return true
		}
	}
	return false
}

// AuthErrorPatterns are substrings of CLI stderr output that indicate a
// credential problem rather than a command failure.
func (k Kind) AuthErrorPatterns() []string {
	switch k {
	case AWS:
		return []string{
			"Unable to locate credentials",
			"ExpiredToken",
			"AuthFailure",
			"The security token included in the request is invalid",
			"The config profile could not be found",
			"UnrecognizedClientException",
			"InvalidClientTokenId",
			"InvalidAccessKeyId",
			"SignatureDoesNotMatch",
			"credentials could not be refreshed",
			"NoCredentialProviders",
		}
	case GCP:
		return []string{
			"DefaultCredentialsError",
			"Reauthentication required",
			"You do not currently have an active account selected",
			"gcloud auth login",
			"Your credentials are invalid",
		}
	case Azure:
		return []string{
			"az login",
			"Please run 'az login'",
			"AADSTS",
			"No subscription found",
			"Interactive authentication is needed",
		}
	}
	return nil
}

// LoginHint returns the command a user should run to refresh credentials.
func (k Kind) LoginHint() string {
	switch k {
	case AWS:
		return "run 'aws configure' or refresh your AWS credentials"
	case GCP:
		return "run 'gcloud auth login'"
	case Azure:
		return "run 'az login'"
	}
	return ""
}

// IsAuthError reports whether stderr output matches one of the provider's
// authentication failure patterns.
func (k Kind) IsAuthError(stderr string) bool {
	for _, pat := range k.AuthErrorPatterns() {
		if strings.Contains(stderr, pat) {
			return true
		}
	}
	return false
}
