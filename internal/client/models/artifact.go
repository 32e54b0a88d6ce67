package models

// FileArtifact is the cover file (encode) or encoded file (decode) of a
// session. Revision increases on every selection, including re-selecting
// identical bytes, so anything derived from a file can tell whether it is
// still current.
type FileArtifact struct {
	Name        string
	Data        []byte
	Kind        MediaKind
	Revision    uint64
	Fingerprint string
	ContentType string
}

func (f *FileArtifact) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// KeyOrigin distinguishes a key blob the operator supplied from one
// synthesized out of pasted text.
type KeyOrigin int

const (
	KeyUploaded KeyOrigin = iota + 1
	KeyDerived
)

func (o KeyOrigin) String() string {
	switch o {
	case KeyUploaded:
		return "uploaded"
	case KeyDerived:
		return "derived"
	}
	return "none"
}

// KeyInputMode selects which key representation is authoritative.
type KeyInputMode string

const (
	KeyModeUpload KeyInputMode = "upload"
	KeyModeText   KeyInputMode = "text"
)

// KeyMaterial is a named key blob ready to be sent as the "key" part.
type KeyMaterial struct {
	Name   string
	Data   []byte
	Origin KeyOrigin
}

// DerivedKeyName is the blob name synthesized for pasted key text: the
// public key encodes, the private key decodes.
func DerivedKeyName(d Direction) string {
	if d == DirectionDecode {
		return "private_key.pem"
	}
	return "public_key.pem"
}

// Artifacts is an immutable copy of everything a submission needs.
type Artifacts struct {
	File    *FileArtifact
	Key     *KeyMaterial
	Payload string
}
