package models

// Version is the release version of the action, stamped into the User-Agent
// header on every outbound trigger call.
const Version = "1.4.2"

const (
	// DefaultAPIBaseURL is the Inkeep API base used for token exchange when
	// no api-base-url input is provided.
	DefaultAPIBaseURL = "https://api.inkeep.com"

	// OIDCAudience is the fixed audience the identity assertion is scoped to.
	OIDCAudience = "https://api.inkeep.com"

	// UserAgent identifies the action to the trigger endpoint.
	UserAgent = "inkeep-github-trigger/" + Version

	// BotLogin is the GitHub login of the Inkeep agent. Comments authored by
	// this identity must never re-trigger a run.
	BotLogin = "inkeep-agents[bot]"

	// PageSize is the fixed per-page size for all paginated GitHub listings.
	PageSize = 100

	// SignatureHeader carries the HMAC-SHA256 signature of the request body.
	SignatureHeader = "X-Signature-256"
)
