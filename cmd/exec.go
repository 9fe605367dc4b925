package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsgate/opsgate/internal/cliexec"
	"github.com/opsgate/opsgate/internal/gateway"
	"github.com/opsgate/opsgate/internal/provider"
)

func init() {
	rootCmd.AddCommand(newProviderCommand(provider.AWS, "aws",
		"Run an AWS command or natural-language request through the gateway",
		`Run a command through the AWS gateway. Accepts raw CLI syntax or a
natural language phrase the interpreter understands.

Examples:
  opsgate aws aws s3 ls
  opsgate aws "list my buckets"
  opsgate aws "aws ec2 describe-instances | head -20"`))

	rootCmd.AddCommand(newProviderCommand(provider.GCP, "gcp",
		"Run a gcloud/gsutil command or natural-language request through the gateway",
		`Run a command through the GCP gateway. Accepts gcloud or gsutil CLI
syntax, or a natural language phrase the interpreter understands.

Examples:
  opsgate gcp gcloud compute instances list
  opsgate gcp "list my instances"`))

	rootCmd.AddCommand(newProviderCommand(provider.Azure, "azure",
		"Run an az command or natural-language request through the gateway",
		`Run a command through the Azure gateway. Accepts az CLI syntax or a
natural language phrase the interpreter understands.

Examples:
  opsgate azure az vm list
  opsgate azure "list my vms"`))
}

// newProviderCommand builds one gateway exec command. Flags are not
// interspersed so provider CLI flags pass through untouched after the
// first positional argument.
func newProviderCommand(kind provider.Kind, use, short, long string) *cobra.Command {
	var info gateway.ContextInfo

	cmd := &cobra.Command{
		Use:   use + " [command...]",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.startGateway(kind, info); err != nil {
				return err
			}

			text := strings.TrimSpace(strings.Join(args, " "))
			res := a.gateways[kind].ExecuteCommand(cmd.Context(), text)
			a.recordCommand(kind, text, res)
			return printResult(res)
		},
	}
	cmd.Flags().SetInterspersed(false)

	switch kind {
	case provider.AWS:
		cmd.Flags().StringVar(&info.Profile, "profile", "", "AWS profile to inject (default from config)")
		cmd.Flags().StringVar(&info.Region, "region", "", "AWS region to inject (default from config)")
	case provider.Azure:
		cmd.Flags().StringVar(&info.SubscriptionID, "subscription", "", "Azure subscription to inject (default from config)")
		cmd.Flags().StringVar(&info.TenantID, "tenant", "", "Azure tenant for AZURE_TENANT_ID (default from config)")
	case provider.GCP:
		cmd.Flags().StringVar(&info.ProjectID, "project", "", "GCP project to inject (default from config)")
	}
	return cmd
}

// printResult writes the command outcome: plain output on success, a
// structured error report otherwise. A non-success result sets the exit
// code without a cobra usage dump.
func printResult(res cliexec.Result) error {
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if res.Status == cliexec.StatusSuccess {
		if res.Structured != nil {
			data, err := json.MarshalIndent(res.Structured, "", "  ")
			if err == nil {
				fmt.Println(string(data))
				return nil
			}
		}
		if out := strings.TrimRight(res.Output, "\n"); out != "" {
			fmt.Println(out)
		}
		if res.Truncated {
			fmt.Fprintln(os.Stderr, "warning: output truncated")
		}
		return nil
	}

	fmt.Fprintf(os.Stderr, "error (%s): %s\n", res.ErrorKind, strings.TrimSpace(res.Output))
	os.Exit(1)
	return nil
}
