package admin

// VerifyProof is the manual verification gate for deposit and upgrade
// approvals: the string the admin typed must equal the stored
// proof-of-payment address byte for byte, case included. An empty stored
// proof can never be confirmed.
func VerifyProof(typed, proof string) bool {
	return proof != "" && typed == proof
}
