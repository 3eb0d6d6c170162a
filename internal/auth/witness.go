package auth

import "crypto/subtle"

// VerifyWitness reports whether given equals stored, in time independent of
// where the two byte strings first differ (spec.md §4.6 "verify_witness").
// Used to check a frontend-supplied encryption witness against the one
// recorded at session creation, and a write password hash against the one
// recorded on open.
func VerifyWitness(given, stored []byte) bool {
	if len(given) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare(given, stored) == 1
}
