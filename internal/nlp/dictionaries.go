package nlp

// The dictionaries map common operator phrasing to read-only canonical
// commands. Declared order matters only between phrases of equal length.

var awsDictionary = []entry{
	// Identity and account
	{"who am i", "aws sts get-caller-identity"},
	{"caller id", "aws sts get-caller-identity"},
	{"account info", "aws sts get-caller-identity"},
	{"my identity", "aws sts get-caller-identity"},
	{"list users", "aws iam list-users"},
	{"show users", "aws iam list-users"},
	{"list roles", "aws iam list-roles"},
	{"show roles", "aws iam list-roles"},
	{"list groups", "aws iam list-groups"},
	{"list policies", "aws iam list-policies"},
	{"list access keys", "aws iam list-access-keys"},
	// Compute
	{"list instances", "aws ec2 describe-instances"},
	{"list my instances", "aws ec2 describe-instances"},
	{"show instances", "aws ec2 describe-instances"},
	{"list ec2", "aws ec2 describe-instances"},
	{"list vms", "aws ec2 describe-instances"},
	{"list my vms", "aws ec2 describe-instances"},
	{"list amis", "aws ec2 describe-images --owners self"},
	// Storage
	{"list buckets", "aws s3api list-buckets"},
	{"list my buckets", "aws s3api list-buckets"},
	{"show buckets", "aws s3api list-buckets"},
	{"list s3", "aws s3api list-buckets"},
	{"list volumes", "aws ec2 describe-volumes"},
	{"list snapshots", "aws ec2 describe-snapshots --owner-ids self"},
	// Network
	{"list vpcs", "aws ec2 describe-vpcs"},
	{"show vpcs", "aws ec2 describe-vpcs"},
	{"list subnets", "aws ec2 describe-subnets"},
	{"list security groups", "aws ec2 describe-security-groups"},
	{"show security groups", "aws ec2 describe-security-groups"},
	{"list load balancers", "aws elbv2 describe-load-balancers"},
	// Database
	{"list databases", "aws rds describe-db-instances"},
	{"show databases", "aws rds describe-db-instances"},
	{"list rds", "aws rds describe-db-instances"},
	{"list tables", "aws dynamodb list-tables"},
	// Secrets
	{"list secrets", "aws secretsmanager list-secrets"},
	{"list kms keys", "aws kms list-keys"},
	// Kubernetes
	{"list clusters", "aws eks list-clusters"},
	{"list eks clusters", "aws eks list-clusters"},
	// Functions and services
	{"list functions", "aws lambda list-functions"},
	{"show functions", "aws lambda list-functions"},
	{"list lambda", "aws lambda list-functions"},
	{"list queues", "aws sqs list-queues"},
	{"list topics", "aws sns list-topics"},
	{"list stacks", "aws cloudformation list-stacks"},
	// Logging
	{"list trails", "aws cloudtrail describe-trails"},
	{"list log groups", "aws logs describe-log-groups"},
	{"list alarms", "aws cloudwatch describe-alarms"},
}

var azureDictionary = []entry{
	// Identity and account
	{"who am i", "az account show"},
	{"caller id", "az account show"},
	{"account info", "az account show"},
	{"current subscription", "az account show"},
	{"show my subscription", "az account show"},
	{"list subscriptions", "az account list"},
	{"list users", "az ad user list"},
	{"show users", "az ad user list"},
	{"list roles", "az role definition list"},
	{"list groups", "az ad group list"},
	{"list service principals", "az ad sp list --all"},
	// Resource management
	{"list resource groups", "az group list"},
	{"show resource groups", "az group list"},
	{"list resources", "az resource list"},
	// Compute
	{"list vms", "az vm list"},
	{"show vms", "az vm list"},
	{"list my vms", "az vm list"},
	{"list virtual machines", "az vm list"},
	{"show virtual machines", "az vm list"},
	{"list disks", "az disk list"},
	// Storage
	{"list storage accounts", "az storage account list"},
	{"show storage accounts", "az storage account list"},
	{"list containers", "az storage container list"},
	{"list buckets", "az storage account list"},
	// Network
	{"list network security groups", "az network nsg list"},
	{"list nsgs", "az network nsg list"},
	{"list vnets", "az network vnet list"},
	{"show vnets", "az network vnet list"},
	{"list public ips", "az network public-ip list"},
	{"list firewalls", "az network firewall list"},
	// Database
	{"list sql servers", "az sql server list"},
	{"list sql databases", "az sql db list"},
	{"list databases", "az sql db list"},
	{"show databases", "az sql db list"},
	{"list cosmos", "az cosmosdb list"},
	// Secrets
	{"list key vaults", "az keyvault list"},
	{"show key vaults", "az keyvault list"},
	{"list secrets", "az keyvault secret list"},
	// Kubernetes
	{"list clusters", "az aks list"},
	{"list aks clusters", "az aks list"},
	// Functions and services
	{"list functions", "az functionapp list"},
	{"list function apps", "az functionapp list"},
	{"list web apps", "az webapp list"},
	{"list app services", "az appservice plan list"},
}

var gcpDictionary = []entry{
	// Identity and account
	{"who am i", "gcloud auth list"},
	{"current account", "gcloud config get-value account"},
	{"current project", "gcloud config get-value project"},
	{"show my project", "gcloud config get-value project"},
	{"list projects", "gcloud projects list"},
	{"show projects", "gcloud projects list"},
	{"list accounts", "gcloud auth list"},
	{"list roles", "gcloud iam roles list"},
	{"show roles", "gcloud iam roles list"},
	{"list service accounts", "gcloud iam service-accounts list"},
	{"list iam policies", "gcloud projects get-iam-policy"},
	// Compute
	{"list instances", "gcloud compute instances list"},
	{"list my instances", "gcloud compute instances list"},
	{"show instances", "gcloud compute instances list"},
	{"list vms", "gcloud compute instances list"},
	{"list my vms", "gcloud compute instances list"},
	{"show vms", "gcloud compute instances list"},
	{"list images", "gcloud compute images list"},
	{"list disks", "gcloud compute disks list"},
	{"list snapshots", "gcloud compute snapshots list"},
	// Storage
	{"list buckets", "gsutil ls"},
	{"show buckets", "gsutil ls"},
	{"list storage", "gsutil ls"},
	// Network
	{"list networks", "gcloud compute networks list"},
	{"list vpcs", "gcloud compute networks list"},
	{"show vpcs", "gcloud compute networks list"},
	{"list subnets", "gcloud compute networks subnets list"},
	{"list firewalls", "gcloud compute firewall-rules list"},
	{"firewall rules", "gcloud compute firewall-rules list"},
	{"list routes", "gcloud compute routes list"},
	// Database
	{"list sql instances", "gcloud sql instances list"},
	{"list databases", "gcloud sql databases list"},
	{"show databases", "gcloud sql databases list"},
	// Secrets
	{"list secrets", "gcloud secrets list"},
	{"list kms keys", "gcloud kms keys list"},
	// Kubernetes
	{"list clusters", "gcloud container clusters list"},
	{"list gke clusters", "gcloud container clusters list"},
	{"show clusters", "gcloud container clusters list"},
	// Functions and services
	{"list functions", "gcloud functions list"},
	{"show functions", "gcloud functions list"},
	{"list cloud functions", "gcloud functions list"},
	{"list services", "gcloud services list"},
	{"list cloud run services", "gcloud run services list"},
	// Logging
	{"list log sinks", "gcloud logging sinks list"},
}
