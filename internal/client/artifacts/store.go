// Package artifacts holds the inputs of one operation session: the file,
// the key material in uploaded or pasted form, and the plaintext payload.
package artifacts

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/dmitrijs2005/stegkeeper/internal/cryptox"
)

// Store is safe for concurrent use. The direction is fixed for the lifetime
// of the store; switching direction means starting a new session.
type Store struct {
	mu sync.RWMutex

	direction models.Direction
	revision  uint64

	file *models.FileArtifact

	keyMode  models.KeyInputMode
	uploaded *models.KeyMaterial
	derived  *models.KeyMaterial
	keyText  string

	payload      string
	payloadBytes int
}

func NewStore(direction models.Direction) *Store {
	return &Store{direction: direction, keyMode: models.KeyModeUpload}
}

func (s *Store) Direction() models.Direction {
	return s.direction
}

// SetFile replaces the file artifact and returns a copy of it. Every call
// bumps the revision, so a quote for identical bytes selected earlier is
// recognisably stale.
func (s *Store) SetFile(name string, data []byte, kind models.MediaKind, contentType string) models.FileArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	s.file = &models.FileArtifact{
		Name:        name,
		Data:        data,
		Kind:        kind,
		Revision:    s.revision,
		Fingerprint: cryptox.Fingerprint(data),
		ContentType: contentType,
	}
	return *s.file
}

// ClearFile drops the file artifact, e.g. after the service declared it
// destroyed.
func (s *Store) ClearFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = nil
}

func (s *Store) File() (models.FileArtifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return models.FileArtifact{}, false
	}
	return *s.file, true
}

// SetKeyBlob stores a copy of an uploaded key and makes it authoritative.
// The store wipes its copy on replacement and reset; data stays the
// caller's.
func (s *Store) SetKeyBlob(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploaded != nil {
		common.WipeByteArray(s.uploaded.Data)
	}
	s.uploaded = &models.KeyMaterial{Name: name, Data: append([]byte(nil), data...), Origin: models.KeyUploaded}
	s.keyMode = models.KeyModeUpload
}

// SetKeyText makes pasted text authoritative and synthesizes the matching
// named blob. Empty text clears the synthesized blob only; an uploaded key
// is left untouched.
func (s *Store) SetKeyText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keyText = text
	s.keyMode = models.KeyModeText
	if s.derived != nil {
		common.WipeByteArray(s.derived.Data)
		s.derived = nil
	}
	if text == "" {
		return
	}
	s.derived = &models.KeyMaterial{
		Name:   models.DerivedKeyName(s.direction),
		Data:   []byte(text),
		Origin: models.KeyDerived,
	}
}

// SetKeyMode toggles which representation is authoritative without
// discarding the other one.
func (s *Store) SetKeyMode(mode models.KeyInputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyMode = mode
}

func (s *Store) KeyMode() models.KeyInputMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyMode
}

// Key resolves the authoritative key material for the current input mode.
func (s *Store) Key() (models.KeyMaterial, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := s.resolvedKey()
	if k == nil {
		return models.KeyMaterial{}, false
	}
	return *k, true
}

func (s *Store) resolvedKey() *models.KeyMaterial {
	if s.keyMode == models.KeyModeText {
		return s.derived
	}
	return s.uploaded
}

// SetPayload stores the plaintext. Invalid UTF-8 sequences are replaced
// with U+FFFD so the byte length always describes what will be sent.
func (s *Store) SetPayload(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = strings.ToValidUTF8(text, "�")
	s.payloadBytes = len(s.payload)
}

func (s *Store) Payload() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payload
}

// PayloadBytes is the UTF-8 encoded length of the payload, the quantity
// compared against capacity.
func (s *Store) PayloadBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payloadBytes
}

// PayloadChars is the number of characters in the payload.
func (s *Store) PayloadChars() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utf8.RuneCountInString(s.payload)
}

// Snapshot copies everything a submission needs. Key bytes are copied so a
// later Reset cannot wipe a request that is still in flight.
func (s *Store) Snapshot() models.Artifacts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := models.Artifacts{Payload: s.payload}
	if s.file != nil {
		f := *s.file
		a.File = &f
	}
	if k := s.resolvedKey(); k != nil {
		kc := *k
		kc.Data = append([]byte(nil), k.Data...)
		a.Key = &kc
	}
	return a
}

// Reset returns the store to its initial state. Key bytes are wiped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploaded != nil {
		common.WipeByteArray(s.uploaded.Data)
	}
	if s.derived != nil {
		common.WipeByteArray(s.derived.Data)
	}
	s.file = nil
	s.uploaded = nil
	s.derived = nil
	s.keyText = ""
	s.keyMode = models.KeyModeUpload
	s.payload = ""
	s.payloadBytes = 0
}
