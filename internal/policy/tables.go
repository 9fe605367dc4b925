package policy

import "github.com/opsgate/opsgate/internal/provider"

// categoryRule groups block-listed command prefixes under a named
// category with its assigned risk tier. Prefixes are matched against the
// lowercased, space-normalized command.
type categoryRule struct {
	name     Category
	tier     RiskTier
	prefixes []string
}

// readOnlyVerbs returns the provider's safe verbs: hyphenated prefix
// verbs and exact verbs.
func readOnlyVerbs(kind provider.Kind) (prefixVerbs, exactVerbs []string) {
	switch kind {
	case provider.AWS:
		return []string{"describe-", "list-", "get-", "show-", "lookup-", "head-", "simulate-"}, []string{"ls"}
	case provider.Azure:
		return nil, []string{"list", "show", "get"}
	case provider.GCP:
		return nil, []string{"list", "describe", "get", "export", "ls"}
	}
	return nil, nil
}

// blockList returns the categorized dangerous-command table for a
// provider, in evaluation order. Identity and project lifecycle sit at
// the top so their Critical tier wins when a command matches more than
// one family.
func blockList(kind provider.Kind) []categoryRule {
	switch kind {
	case provider.AWS:
		return awsBlockList
	case provider.Azure:
		return azureBlockList
	case provider.GCP:
		return gcpBlockList
	}
	return nil
}

var awsBlockList = []categoryRule{
	{name: CategoryIdentity, tier: TierCritical, prefixes: []string{
		"aws iam create-user",
		"aws iam create-access-key",
		"aws iam attach-user-policy",
		"aws iam attach-role-policy",
		"aws iam attach-group-policy",
		"aws iam put-user-policy",
		"aws iam put-role-policy",
		"aws iam put-group-policy",
		"aws iam create-policy",
		"aws iam create-login-profile",
		"aws iam update-assume-role-policy",
		"aws iam deactivate-mfa-device",
		"aws iam delete-",
		"aws sts assume-role",
	}},
	{name: CategoryProject, tier: TierCritical, prefixes: []string{
		"aws organizations create-account",
		"aws organizations leave-organization",
		"aws organizations remove-account-from-organization",
		"aws organizations disable-policy-type",
		"aws organizations attach-policy",
	}},
	{name: CategorySecrets, tier: TierHigh, prefixes: []string{
		"aws secretsmanager put-secret-value",
		"aws secretsmanager update-secret",
		"aws secretsmanager delete-secret",
		"aws kms schedule-key-deletion",
		"aws kms disable-key",
		"aws kms create-grant",
		"aws kms revoke-grant",
	}},
	{name: CategoryLogging, tier: TierHigh, prefixes: []string{
		"aws cloudtrail delete-trail",
		"aws cloudtrail stop-logging",
		"aws cloudtrail update-trail",
		"aws cloudwatch delete-alarms",
		"aws cloudwatch disable-alarm-actions",
		"aws configservice delete-configuration-recorder",
		"aws configservice stop-configuration-recorder",
		"aws guardduty delete-detector",
	}},
	{name: CategoryNetwork, tier: TierHigh, prefixes: []string{
		"aws ec2 authorize-security-group-ingress",
		"aws ec2 authorize-security-group-egress",
		"aws ec2 delete-security-group",
		"aws ec2 modify-instance-attribute",
	}},
	{name: CategoryCompute, tier: TierMedium, prefixes: []string{
		"aws ec2 terminate-instances",
		"aws ec2 delete-volume",
		"aws ec2 deregister-image",
		"aws ec2 delete-snapshot",
	}},
	{name: CategoryStorage, tier: TierMedium, prefixes: []string{
		"aws s3api put-bucket-acl",
		"aws s3api put-bucket-policy",
		"aws s3api delete-bucket",
		"aws s3api delete-bucket-policy",
		"aws s3api delete-bucket-encryption",
		"aws s3api delete-public-access-block",
		"aws s3 rb",
		"aws s3 rm",
	}},
	{name: CategoryDatabase, tier: TierMedium, prefixes: []string{
		"aws rds delete-db-instance",
		"aws rds delete-db-cluster",
		"aws dynamodb delete-table",
	}},
}

var azureBlockList = []categoryRule{
	{name: CategoryIdentity, tier: TierCritical, prefixes: []string{
		"az ad user create",
		"az ad user delete",
		"az ad app create",
		"az ad app delete",
		"az ad sp create",
		"az ad sp delete",
		"az role assignment create",
		"az role assignment delete",
		"az role definition create",
		"az role definition update",
		"az role definition delete",
	}},
	{name: CategoryProject, tier: TierCritical, prefixes: []string{
		"az account set",
		"az group delete",
	}},
	{name: CategorySecrets, tier: TierHigh, prefixes: []string{
		"az keyvault secret set",
		"az keyvault secret delete",
		"az keyvault key create",
		"az keyvault key delete",
		"az keyvault purge",
	}},
	{name: CategoryLogging, tier: TierHigh, prefixes: []string{
		"az monitor log-profiles delete",
		"az monitor log-analytics workspace delete",
		"az eventhub namespace delete",
		"az sql server audit-policy update",
		"az storage logging off",
	}},
	{name: CategoryNetwork, tier: TierHigh, prefixes: []string{
		"az network firewall rule create",
		"az network firewall rule delete",
		"az network firewall update",
		"az network firewall delete",
		"az network nsg rule create",
		"az network nsg rule delete",
	}},
	{name: CategoryCompute, tier: TierMedium, prefixes: []string{
		"az vm delete",
		"az disk delete",
		"az image delete",
	}},
	{name: CategoryStorage, tier: TierMedium, prefixes: []string{
		"az storage account delete",
		"az storage container delete",
		"az storage blob delete",
		"az storage account update",
	}},
	{name: CategoryDatabase, tier: TierMedium, prefixes: []string{
		"az sql server firewall-rule create",
		"az sql server firewall-rule delete",
		"az sql server update",
		"az sql db delete",
	}},
}

var gcpBlockList = []categoryRule{
	{name: CategoryIdentity, tier: TierCritical, prefixes: []string{
		"gcloud iam service-accounts create",
		"gcloud iam service-accounts delete",
		"gcloud iam roles create",
		"gcloud iam roles update",
		"gcloud iam roles delete",
		"gcloud iam service-accounts keys create",
		"gcloud iam service-accounts keys delete",
		"gcloud projects add-iam-policy-binding",
		"gcloud projects remove-iam-policy-binding",
		"gcloud projects set-iam-policy",
	}},
	{name: CategoryProject, tier: TierCritical, prefixes: []string{
		"gcloud projects create",
		"gcloud projects delete",
		"gcloud projects move",
		"gcloud projects update",
	}},
	{name: CategorySecrets, tier: TierHigh, prefixes: []string{
		"gcloud secrets create",
		"gcloud secrets delete",
		"gcloud secrets versions destroy",
		"gcloud secrets update",
	}},
	{name: CategoryLogging, tier: TierHigh, prefixes: []string{
		"gcloud logging sinks delete",
		"gcloud logging sinks update",
	}},
	{name: CategoryNetwork, tier: TierHigh, prefixes: []string{
		"gcloud compute firewall-rules create",
		"gcloud compute firewall-rules delete",
		"gcloud compute firewall-rules update",
		"gcloud compute networks delete",
		"gcloud compute networks update",
	}},
	{name: CategoryAuth, tier: TierHigh, prefixes: []string{
		"gcloud auth revoke",
		"gcloud auth application-default set-quota-project",
	}},
	{name: CategoryCompute, tier: TierMedium, prefixes: []string{
		"gcloud compute instances delete",
		"gcloud compute disks delete",
		"gcloud compute images delete",
		"gcloud compute snapshots delete",
	}},
	{name: CategoryStorage, tier: TierMedium, prefixes: []string{
		"gsutil rm",
		"gsutil iam set",
		"gsutil iam delete",
		"gsutil acl set",
		"gcloud storage buckets delete",
	}},
	{name: CategoryDatabase, tier: TierMedium, prefixes: []string{
		"gcloud sql instances delete",
		"gcloud sql databases delete",
		"gcloud sql backups delete",
	}},
}
