package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/filex"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
)

const (
	KeyArchiveName = "pixelcrypt_keys.zip"
	PublicKeyName  = "public_key.pem"
	PrivateKeyName = "private_key.pem"

	maxKeyFileSize = 1 << 20
)

var ErrKeyArchive = errors.New("key archive is incomplete")

// KeyPair is a freshly generated pair and where it was written.
type KeyPair struct {
	PublicKey   []byte
	PrivateKey  []byte
	ArchivePath string
	PublicPath  string
	PrivatePath string
}

type KeyService struct {
	client client.Client
	dir    string
	log    logging.Logger
}

// NewKeyService writes generated keys under dir.
func NewKeyService(c client.Client, dir string, log logging.Logger) *KeyService {
	return &KeyService{client: c, dir: dir, log: log}
}

// Generate asks the service for a new key pair, keeps the archive as
// delivered and unpacks both PEM files next to it.
func (s *KeyService) Generate(ctx context.Context) (*KeyPair, error) {
	archive, err := s.client.GenerateKeys(ctx)
	if err != nil {
		return nil, err
	}

	kp, err := ExtractKeyPair(archive)
	if err != nil {
		return nil, err
	}

	if kp.ArchivePath, err = filex.WriteFile(s.dir, KeyArchiveName, archive); err != nil {
		return nil, err
	}
	if kp.PublicPath, err = filex.WriteFile(s.dir, PublicKeyName, kp.PublicKey); err != nil {
		return nil, err
	}
	if kp.PrivatePath, err = filex.WriteFile(s.dir, PrivateKeyName, kp.PrivateKey); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "key pair generated", "archive", kp.ArchivePath)
	return kp, nil
}

// ExtractKeyPair reads public_key.pem and private_key.pem out of a ZIP
// archive, wherever they sit inside it.
func ExtractKeyPair(archive []byte) (*KeyPair, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyArchive, err)
	}

	kp := &KeyPair{}
	for _, f := range zr.File {
		var dst *[]byte
		switch path.Base(f.Name) {
		case PublicKeyName:
			dst = &kp.PublicKey
		case PrivateKeyName:
			dst = &kp.PrivateKey
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyArchive, err)
		}
		*dst, err = io.ReadAll(io.LimitReader(rc, maxKeyFileSize))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyArchive, err)
		}
	}

	if len(kp.PublicKey) == 0 || len(kp.PrivateKey) == 0 {
		return nil, ErrKeyArchive
	}
	return kp, nil
}

// KeyGenerationStatus is the status line for the result of Generate.
func KeyGenerationStatus(err error) models.Status {
	switch {
	case err == nil:
		return models.Status{Level: models.StatusSuccess, Message: models.MsgKeysGenerated}
	case errors.Is(err, client.ErrUnavailable):
		return models.Status{Level: models.StatusError, Message: models.MsgKeysConnection}
	}
	return models.Status{Level: models.StatusError, Message: models.MsgKeysFailed}
}
