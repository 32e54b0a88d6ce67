package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
)

// Upload is a named blob sent as a multipart file part.
type Upload struct {
	Name string
	Data []byte
}

// EncodeResult is the encoded media returned by an encode endpoint.
type EncodeResult struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Client is the contract of the remote steganography service.
type Client interface {
	Ping(ctx context.Context) error
	CheckCapacity(ctx context.Context, file Upload) (json.RawMessage, error)
	Encode(ctx context.Context, kind models.MediaKind, file, key Upload, secret string) (*EncodeResult, error)
	Decode(ctx context.Context, kind models.MediaKind, file, key Upload) (string, error)
	GenerateKeys(ctx context.Context) ([]byte, error)
}

// TokenSource supplies the optional bearer credential. ok=false means the
// caller is anonymous, which is not an error.
type TokenSource interface {
	BearerToken(ctx context.Context) (token string, ok bool)
}
