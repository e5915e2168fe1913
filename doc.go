// Package idguard protects identity fields at rest while keeping them usable.
//
// A record has one lookup field, a national ID number for instance, used as
// an exact-match login key, and a set of display fields such as phone
// numbers or next of kin details that must be shown back to the user.
// idguard stores the lookup field as a keyed one-way digest (HMAC-SHA256,
// 64 lowercase hex characters) and display fields as authenticated
// encryption tokens (AES-256-GCM, prefixed "idg1.").
//
// # Dual mode
//
// Systems rarely switch to protected storage in one step. A Guard runs in
// either LegacyMode, where values are stored as given, or ProtectedMode. The
// mode comes from a ModeSource consulted on every call, so it can be flipped
// at runtime. Reads handle both shapes at all times:
//
//   - ResolveByLookupKey tries the raw key first and, in ProtectedMode, the
//     digest second, so records written before and after the switch are found.
//   - RevealForDisplay decrypts tokens and masks digests, and leaves plain
//     values alone.
//
// # Failure handling
//
// A problem with one field never fails the whole record. Decryption failures
// fall back to the stored value, encryption failures are reported per field
// through an errsx.Map, and an unavailable mode source means LegacyMode.
// Every swallowed failure is logged and counted.
//
// # Basic usage
//
//	cfg := idguard.PatientProfile()
//	cfg.RootSecret = os.Getenv(idguard.EnvRootSecret)
//	cfg.ModeSource = idguard.EnvMode(idguard.EnvProtectedMode)
//
//	guard, err := idguard.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stored, err := guard.ProtectForWrite(ctx, map[string]string{
//	    "omang":     "200101001",
//	    "cellphone": "71234567",
//	})
//
//	rec, err := guard.ResolveByLookupKey(ctx, "200101001", store.FindRecord)
//	shown := guard.RevealForDisplay(ctx, rec.Fields)
//
// The root secret can also be loaded from HashiCorp Vault, AWS Secrets
// Manager or a KMS encrypted blob, see the providers/secrets packages and
// NewFromSource.
package idguard
