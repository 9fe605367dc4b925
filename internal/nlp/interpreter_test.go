package nlp

import (
	"testing"

	"github.com/opsgate/opsgate/internal/provider"
)

func TestInterpretBasicPhrases(t *testing.T) {
	in := New()

	tests := []struct {
		kind provider.Kind
		text string
		want string
	}{
		{provider.AWS, "list my buckets", "aws s3api list-buckets"},
		{provider.AWS, "who am i", "aws sts get-caller-identity"},
		{provider.AWS, "list instances", "aws ec2 describe-instances"},
		{provider.Azure, "list my vms", "az vm list"},
		{provider.Azure, "who am i", "az account show"},
		{provider.GCP, "list instances", "gcloud compute instances list"},
	}

	for _, tt := range tests {
		got, ok := in.Interpret(tt.kind, tt.text)
		if !ok {
			t.Errorf("Interpret(%s, %q) did not match", tt.kind, tt.text)
			continue
		}
		if got != tt.want {
			t.Errorf("Interpret(%s, %q) = %q, want %q", tt.kind, tt.text, got, tt.want)
		}
	}
}

func TestInterpretNormalization(t *testing.T) {
	in := New()

	tests := []string{
		"Please list my buckets",
		"can you list my buckets",
		"LIST   MY   BUCKETS",
		"list my buckets for me",
	}

	for _, text := range tests {
		got, ok := in.Interpret(provider.AWS, text)
		if !ok {
			t.Errorf("Interpret(%q) did not match", text)
			continue
		}
		if got != "aws s3api list-buckets" {
			t.Errorf("Interpret(%q) = %q, want %q", text, got, "aws s3api list-buckets")
		}
	}
}

func TestInterpretLongestPhraseWins(t *testing.T) {
	in := New()

	// "list eks clusters" contains "list clusters" too; the longer phrase
	// must win.
	got, ok := in.Interpret(provider.AWS, "list eks clusters")
	if !ok {
		t.Fatal("Interpret did not match")
	}
	if got != "aws eks list-clusters" {
		t.Errorf("Interpret = %q, want %q", got, "aws eks list-clusters")
	}
}

func TestInterpretUnknownPhrase(t *testing.T) {
	in := New()

	for _, text := range []string{
		"do something clever",
		"",
		"   ",
	} {
		if got, ok := in.Interpret(provider.AWS, text); ok {
			t.Errorf("Interpret(%q) = %q, want no match", text, got)
		}
	}
}

func TestInterpretPerProviderIsolation(t *testing.T) {
	in := New()

	aws, _ := in.Interpret(provider.AWS, "list vms")
	azure, _ := in.Interpret(provider.Azure, "list vms")
	if aws == azure {
		t.Errorf("aws and azure interpretations both = %q, want provider-specific commands", aws)
	}
}

func TestPhrasesCoverage(t *testing.T) {
	in := New()
	for _, kind := range provider.Kinds() {
		if n := in.Phrases(kind); n < 20 {
			t.Errorf("Phrases(%s) = %d, want at least 20", kind, n)
		}
	}
}
