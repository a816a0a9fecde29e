package crypto

// Signature is an opaque identifier string standing in for a real
// signature scheme. The specification excludes wire-level cryptography
// (§1 Non-goals); votes and proposals carry a Signature purely as a
// provenance tag.
type Signature string

// Sign produces a deterministic placeholder signature binding signer to
// payload. It is not a cryptographic signature: forging one requires no
// secret material, by design, since the specification does not model an
// adversary at the signature layer.
func Sign(signer string, payload []byte) Signature {
	return Signature(MakeID(struct {
		Signer  string
		Payload []byte
	}{signer, payload}))
}
