package manifest

import (
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/ipfs/go-cid"

	"xdao.co/symprefix/cidutil"
	"xdao.co/symprefix/emit"
	"xdao.co/symprefix/keys"
	"xdao.co/symprefix/symtab"
)

// Spec identifies the manifest schema carried in META.
const Spec = "xdao-symprefix-1"

// Build assembles an unsigned Document for one generation run. The CRYPTO
// section is populated with a placeholder "0" signature so the document
// renders; callers sign with SignEd25519 or attach their own signature.
func Build(t *symtab.Table, files []emit.File) (Document, error) {
	if t == nil {
		return Document{}, newError(KindRender, "SPM-BUILD-001", "missing symbol table")
	}
	if len(files) == 0 {
		return Document{}, newError(KindRender, "SPM-BUILD-002", "no generated files")
	}

	outputs := make(map[string]string, len(files))
	for _, f := range files {
		if _, dup := outputs[f.Name]; dup {
			return Document{}, newError(KindRender, "SPM-BUILD-003", fmt.Sprintf("duplicate output %q", f.Name))
		}
		outputs[f.Name] = cidutil.SumString(f.Data)
	}

	return Document{
		Meta: map[string]string{
			"Spec":    Spec,
			"Version": "1",
		},
		Library: map[string]string{
			"Name":    t.Library,
			"Version": t.Version,
			"Tag":     t.Tag(),
			"Rules":   strconv.Itoa(t.Len()),
		},
		Outputs: outputs,
		Crypto: map[string]string{
			"Hash-Alg":      "sha256",
			"Issuer-Key":    "unsigned",
			"Signature":     "0",
			"Signature-Alg": "none",
		},
	}, nil
}

// SignEd25519 fills the CRYPTO section and returns the final canonical bytes.
//
// The signature covers the canonical bytes from BEGIN through the end of
// OUTPUTS, which are independent of the CRYPTO pairs, so signing proceeds in
// one render-parse-sign-render pass.
func SignEd25519(doc Document, hashAlg string, priv ed25519.PrivateKey) ([]byte, error) {
	doc.Crypto = map[string]string{
		"Hash-Alg":      hashAlg,
		"Issuer-Key":    keys.IssuerKeyFromSeed(priv.Seed()),
		"Signature":     "0",
		"Signature-Alg": "ed25519",
	}
	pre, err := Render(doc)
	if err != nil {
		return nil, err
	}
	parsed, err := Parse(pre)
	if err != nil {
		return nil, err
	}
	sig, err := keys.SignEd25519(parsed.SignedBytes(), hashAlg, priv)
	if err != nil {
		return nil, wrapError(KindCrypto, "SPM-CRYPTO-141", "signing failed", err)
	}
	doc.Crypto["Signature"] = sig
	return Render(doc)
}

// ValidateCore enforces the schema-level requirements beyond canonical form:
// META identifies this spec, LIBRARY is internally consistent, and every
// output value is a well-formed CID.
func ValidateCore(m *Manifest) error {
	if m.pair("META", "Spec") != Spec {
		return newError(KindValidation, "SPM-VAL-101", "unknown manifest spec")
	}
	name := m.LibraryName()
	version := m.LibraryVersion()
	if name == "" || version == "" {
		return newError(KindValidation, "SPM-VAL-102", "missing library name or version")
	}
	tab, err := symtab.New(name, version, nil)
	if err != nil {
		return wrapError(KindValidation, "SPM-VAL-103", "invalid library identity", err)
	}
	if m.Tag() != tab.Tag() {
		return newError(KindValidation, "SPM-VAL-104", "Tag does not match Name and Version")
	}
	names := m.OutputNames()
	if len(names) == 0 {
		return newError(KindValidation, "SPM-VAL-105", "no outputs recorded")
	}
	for _, n := range names {
		if _, err := cid.Decode(m.OutputCID(n)); err != nil {
			return wrapError(KindValidation, "SPM-VAL-106", fmt.Sprintf("invalid CID for output %q", n), err)
		}
	}
	return nil
}

// VerifyOutputs checks generated files against the manifest: every file must
// be recorded and hash to its recorded CID, and every recorded output must be
// present. This is the missing-mapping condition surfaced at build time.
func VerifyOutputs(m *Manifest, files []emit.File) error {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		want := m.OutputCID(f.Name)
		if want == "" {
			return newError(KindValidation, "SPM-VAL-111", fmt.Sprintf("output %q not recorded in manifest", f.Name))
		}
		if got := cidutil.SumString(f.Data); got != want {
			return newError(KindValidation, "SPM-VAL-112", fmt.Sprintf("output %q does not match recorded CID", f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	for _, n := range m.OutputNames() {
		if _, ok := seen[n]; !ok {
			return newError(KindValidation, "SPM-VAL-113", fmt.Sprintf("recorded output %q missing", n))
		}
	}
	return nil
}
