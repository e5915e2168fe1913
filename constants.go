package idguard

// Environment variable names
const (
	// EnvRootSecret holds the process-wide root secret all key material is
	// derived from. Changing it invalidates every stored digest and token.
	EnvRootSecret = "IDGUARD_ROOT_SECRET"

	// EnvProtectedMode switches writes to hashed/encrypted storage.
	// Parsed with strconv.ParseBool. Unset means legacy mode.
	EnvProtectedMode = "IDGUARD_PROTECTED_MODE"

	// EnvLookupField names the field protected with the one-way hash.
	EnvLookupField = "IDGUARD_LOOKUP_FIELD"

	// EnvDisplayFields is a comma separated list of fields protected with
	// reversible encryption.
	EnvDisplayFields = "IDGUARD_DISPLAY_FIELDS"

	// EnvLookupFormat is an optional regular expression raw lookup values
	// must match before they are stored.
	EnvLookupFormat = "IDGUARD_LOOKUP_FORMAT"

	// EnvMaskPlaceholder replaces a hashed lookup field on display.
	EnvMaskPlaceholder = "IDGUARD_MASK"
)

// Default values
const (
	DefaultLookupField     = "omang"
	DefaultMaskPlaceholder = "*********"
)

// DefaultDisplayFields are the next-of-kin, contact and address fields of a
// patient profile.
var DefaultDisplayFields = []string{
	"cellphone",
	"medical_aid",
	"medical_aid_number",
	"next_of_kin_name",
	"next_of_kin_contact",
	"location",
	"address",
}

// Storage path templates for root secret providers
const (
	// AWSRootSecretPathTemplate is the Secrets Manager secret name.
	// Example: "idguard/patient-portal/root-secret"
	AWSRootSecretPathTemplate = "idguard/%s/root-secret"

	// VaultRootSecretPathTemplate is the Vault KV v2 path, "secret/" being the mount.
	// Example: "secret/data/idguard/patient-portal/root-secret"
	VaultRootSecretPathTemplate = "secret/data/idguard/%s/root-secret"
)

// Operation names reported to hooks and logs.
const (
	opProtectForWrite  = "protect_for_write"
	opRevealForDisplay = "reveal_for_display"
	opResolve          = "resolve_by_lookup_key"
	opMode             = "mode"
	opKeyDerivation    = "key_derivation"
)
