package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opsgate/opsgate/internal/playbook"
)

func init() {
	playbookCmd := &cobra.Command{
		Use:   "playbook",
		Short: "Run and manage remediation playbooks",
		Long: `Remediation playbooks bundle ordered provider commands with approval
gates, dry-run preview, and rollback. Actions run through the same policy
engine as interactive commands.`,
	}

	playbookCmd.AddCommand(newPlaybookListCmd())
	playbookCmd.AddCommand(newPlaybookRunCmd())
	playbookCmd.AddCommand(newPlaybookApproveCmd())
	playbookCmd.AddCommand(newPlaybookRejectCmd())
	playbookCmd.AddCommand(newPlaybookRollbackCmd())
	playbookCmd.AddCommand(newPlaybookHistoryCmd())
	rootCmd.AddCommand(playbookCmd)
}

func newPlaybookListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available playbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tSEVERITY\tAPPROVAL\tROLLBACK\tACTIONS\tDESCRIPTION")
			for _, p := range a.catalog {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%d\t%s\n",
					p.ID(), p.Category(), p.Severity(), p.RequiresApproval(),
					p.RollbackEnabled(), len(p.Actions()), p.Description())
			}
			return w.Flush()
		},
	}
}

func newPlaybookRunCmd() *cobra.Command {
	var (
		findingID string
		resource  string
		category  string
		severity  string
		initiator string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "run <playbook-id>",
		Short: "Start a playbook against a finding",
		Long: `Start a playbook run. Playbooks that require approval park in
AWAITING_APPROVAL; use 'opsgate playbook approve' to resume them.
Approving from a later invocation needs the audit store (--audit-db or
OPSGATE_AUDIT_DB) so the parked execution survives this process.
--dry-run previews every action without executing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.findPlaybook(args[0])
			if err != nil {
				return err
			}

			a.startAllGateways()

			finding := playbook.Finding{
				ID:       findingID,
				Resource: resource,
				Category: category,
				Severity: severity,
			}
			if finding.Category == "" {
				finding.Category = p.Category()
			}
			if finding.Severity == "" {
				finding.Severity = p.Severity()
			}

			ex, err := a.executor.Execute(cmd.Context(), p, finding, initiator, dryRun)
			if err != nil {
				return err
			}
			return printExecution(ex)
		},
	}

	cmd.Flags().StringVar(&findingID, "finding", "", "finding ID being remediated (required)")
	cmd.Flags().StringVar(&resource, "resource", "", "affected resource identifier (required)")
	cmd.Flags().StringVar(&category, "category", "", "finding category (default: playbook category)")
	cmd.Flags().StringVar(&severity, "severity", "", "finding severity (default: playbook severity)")
	cmd.Flags().StringVar(&initiator, "initiator", "", "who requested this run (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview actions without executing them")
	cmd.MarkFlagRequired("finding")
	cmd.MarkFlagRequired("resource")
	cmd.MarkFlagRequired("initiator")
	return cmd
}

func newPlaybookApproveCmd() *cobra.Command {
	var approver string

	cmd := &cobra.Command{
		Use:   "approve <execution-id>",
		Short: "Approve a parked execution and run its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.adoptExecution(args[0]); err != nil {
				return err
			}
			a.startAllGateways()

			ex, err := a.executor.Approve(cmd.Context(), args[0], approver)
			if err != nil {
				return err
			}
			return printExecution(ex)
		},
	}

	cmd.Flags().StringVar(&approver, "approver", "", "who approved this execution (required)")
	cmd.MarkFlagRequired("approver")
	return cmd
}

func newPlaybookRejectCmd() *cobra.Command {
	var (
		approver string
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "reject <execution-id>",
		Short: "Reject a parked execution; no action runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.adoptExecution(args[0]); err != nil {
				return err
			}

			ex, err := a.executor.Reject(args[0], approver, reason)
			if err != nil {
				return err
			}
			return printExecution(ex)
		},
	}

	cmd.Flags().StringVar(&approver, "approver", "", "who rejected this execution (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why it was rejected")
	cmd.MarkFlagRequired("approver")
	return cmd
}

func newPlaybookRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <execution-id>",
		Short: "Roll back a completed execution in reverse action order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.adoptExecution(args[0]); err != nil {
				return err
			}
			a.startAllGateways()

			ex, err := a.executor.Rollback(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ex.RollbackDirty {
				fmt.Fprintln(os.Stderr, "warning: some rollback steps failed; inspect action results")
			}
			return printExecution(ex)
		},
	}
}

func newPlaybookHistoryCmd() *cobra.Command {
	var (
		playbookID string
		findingID  string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show persisted execution history from the audit store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return fmt.Errorf("no audit store configured; set --audit-db or OPSGATE_AUDIT_DB")
			}

			executions, err := a.store.Executions(playbookID, limit)
			if err != nil {
				return err
			}
			if findingID != "" {
				filtered := executions[:0]
				for _, ex := range executions {
					if ex.FindingID == findingID {
						filtered = append(filtered, ex)
					}
				}
				executions = filtered
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXECUTION\tPLAYBOOK\tFINDING\tSTATUS\tDRY-RUN\tINITIATOR\tSTARTED")
			for _, ex := range executions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\t%s\n",
					ex.ExecutionID, ex.PlaybookID, ex.FindingID, ex.Status,
					ex.DryRun, ex.Initiator, ex.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&playbookID, "playbook", "", "filter to one playbook")
	cmd.Flags().StringVar(&findingID, "finding", "", "filter to one finding")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}

func printExecution(ex playbook.Execution) error {
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
