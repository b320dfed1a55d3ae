package repoargs

type RepositoryName string

const (
	UserRepoName       RepositoryName = "user"
	ItemRepoName       RepositoryName = "item"
	PurchaseRepoName   RepositoryName = "purchase"
	PaymentRepoName    RepositoryName = "payment"
	ReferralRepoName   RepositoryName = "referral"
	BroadcastRepoName  RepositoryName = "broadcast"
	CheckpointRepoName RepositoryName = "checkpoint"
)
