package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
)

// reply is one scripted answer of fakeService. A reply with a gate blocks
// until the gate is closed.
type reply struct {
	secret string
	result *client.EncodeResult
	err    error
	gate   chan struct{}
}

// fakeService implements client.Client. Operation calls consume replies in
// order; capacity calls consume capReplies.
type fakeService struct {
	mu sync.Mutex

	replies    []reply
	opCalls    int
	capReplies []reply
	capBodies  []string
	capCalls   int
}

func (f *fakeService) next() reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.replies[f.opCalls]
	f.opCalls++
	return r
}

func (f *fakeService) ops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opCalls
}

func (f *fakeService) caps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capCalls
}

func (f *fakeService) Ping(ctx context.Context) error { return nil }

func (f *fakeService) CheckCapacity(ctx context.Context, file client.Upload) (json.RawMessage, error) {
	f.mu.Lock()
	i := f.capCalls
	f.capCalls++
	var r reply
	if i < len(f.capReplies) {
		r = f.capReplies[i]
	}
	body := `{"max_bytes": 512}`
	if i < len(f.capBodies) {
		body = f.capBodies[i]
	}
	f.mu.Unlock()

	if r.gate != nil {
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(body), nil
}

func (f *fakeService) Encode(ctx context.Context, kind models.MediaKind, file, key client.Upload, secret string) (*client.EncodeResult, error) {
	r := f.next()
	if r.gate != nil {
		<-r.gate
	}
	return r.result, r.err
}

func (f *fakeService) Decode(ctx context.Context, kind models.MediaKind, file, key client.Upload) (string, error) {
	r := f.next()
	if r.gate != nil {
		<-r.gate
	}
	return r.secret, r.err
}

func (f *fakeService) GenerateKeys(ctx context.Context) ([]byte, error) {
	return nil, client.ErrRejected
}
