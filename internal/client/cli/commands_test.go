package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestApp_EncodeFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "alice", "")
	h.svc.replies = []reply{{result: &client.EncodeResult{Data: pngHeader, ContentType: "image/png"}}}

	require.NoError(t, h.app.LoadFile(ctx, writeFile(t, "beach.png", pngHeader)))
	assert.Contains(t, h.out.String(), "File: beach.png, 29 bytes (image/png)")
	require.NoError(t, h.app.LoadKey(ctx, writeFile(t, "public_key.pem", []byte("PUB"))))
	require.NoError(t, h.app.EnterSecret(ctx, "hello"))

	require.NoError(t, h.app.Capacity(ctx))
	assert.Contains(t, h.out.String(), "Capacity: 64 bytes")
	assert.Contains(t, h.out.String(), "5 of 64 bytes (8%)")

	require.NoError(t, h.app.Submit(ctx))
	assert.Contains(t, h.out.String(), models.MsgEncodeSuccess)
	assert.Equal(t, "hello", h.svc.lastSecret)
	assert.Equal(t, "public_key.pem", h.svc.lastKey.Name)

	saved, err := os.ReadFile(filepath.Join(h.results, "encoded_image.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, saved)
	assert.Contains(t, h.out.String(), "Saved to: "+filepath.Join(h.results, "encoded_image.png"))
}

func TestApp_SubmitWithoutArtifacts(t *testing.T) {
	h := newHarness(t, "alice", "")

	err := h.app.Submit(context.Background())
	var oe *OutcomeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.OutcomeLocalValidation, oe.Outcome.Kind)
	assert.EqualError(t, err, models.MsgMissingFileOrKey)
	assert.Zero(t, h.svc.calls)
}

func TestApp_CapacityOverflowIsAdvisory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", "")
	h.svc.capBody = `{"maxBytes": 4}`
	h.svc.replies = []reply{{result: &client.EncodeResult{Data: pngHeader}}}

	require.NoError(t, h.app.LoadFile(ctx, writeFile(t, "beach.png", pngHeader)))
	require.NoError(t, h.app.LoadKey(ctx, writeFile(t, "public_key.pem", []byte("PUB"))))
	require.NoError(t, h.app.EnterSecret(ctx, "too long"))
	require.NoError(t, h.app.Capacity(ctx))
	assert.Contains(t, h.out.String(), "8 of 4 bytes (100%), over capacity")

	require.NoError(t, h.app.Submit(ctx))
	assert.Equal(t, 1, h.svc.calls)
}

func TestApp_DecodeAttemptsAndDestruction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "alice", "")
	h.svc.replies = []reply{
		{err: &client.StatusError{Code: 401, Message: "Wrong key"}},
		{err: &client.StatusError{Code: 410, Message: "File destroyed"}},
	}

	require.NoError(t, h.app.SetDirection(ctx, "decode"))
	require.NoError(t, h.app.LoadFile(ctx, writeFile(t, "encoded_image.png", pngHeader)))
	require.NoError(t, h.app.LoadKey(ctx, writeFile(t, "private_key.pem", []byte("PRIV"))))

	err := h.app.Submit(ctx)
	assert.EqualError(t, err, "Wrong key")
	assert.Contains(t, h.out.String(), "Attempts left: 2")

	err = h.app.Submit(ctx)
	var oe *OutcomeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.OutcomeDestroyed, oe.Outcome.Kind)

	st := h.app.session.Snapshot()
	assert.True(t, st.Attempts.Corrupted)
	assert.Nil(t, st.File)

	err = h.app.Submit(ctx)
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, models.OutcomeLocalValidation, oe.Outcome.Kind)
	assert.EqualError(t, err, models.MsgFileDestroyed)
	assert.Equal(t, 2, h.svc.calls)

	require.NoError(t, h.app.Reset(ctx))
	assert.False(t, h.app.session.Snapshot().Attempts.Corrupted)
}

func TestApp_DecodeSuccessShowsSecretAndHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "alice", "")
	h.svc.replies = []reply{{secret: "meet at noon"}}

	require.NoError(t, h.app.SelectTab(ctx, "audio"))
	require.NoError(t, h.app.SetDirection(ctx, "decode"))
	require.NoError(t, h.app.LoadFile(ctx, writeFile(t, "encoded_audio.wav", []byte("RIFF0000WAVEfmt "))))
	require.NoError(t, h.app.LoadKey(ctx, writeFile(t, "private_key.pem", []byte("PRIV"))))
	require.NoError(t, h.app.Submit(ctx))
	assert.Contains(t, h.out.String(), "Secret:\nmeet at noon\n")

	h.out.Reset()
	require.NoError(t, h.app.History(ctx))
	assert.Contains(t, h.out.String(), "audio decode success   encoded_audio.wav")

	h.out.Reset()
	require.NoError(t, h.app.Verify(ctx))
	assert.Equal(t, "Audit trail intact: 1 records\n", h.out.String())
}

func TestApp_HistoryRequiresIdentity(t *testing.T) {
	h := newHarness(t, "", "")

	assert.ErrorIs(t, h.app.History(context.Background()), common.ErrAnonymous)
	assert.ErrorIs(t, h.app.Verify(context.Background()), common.ErrAnonymous)
}

func TestApp_EmptyHistory(t *testing.T) {
	h := newHarness(t, "bob", "")

	require.NoError(t, h.app.History(context.Background()))
	assert.Equal(t, "No operations recorded.\n", h.out.String())
}

func TestApp_FollowHistory(t *testing.T) {
	h := newHarness(t, "bob", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.app.FollowHistory(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(h.out.String(), "No operations recorded.")
	}, time.Second, 10*time.Millisecond)

	_, err := h.audit.Record(context.Background(), "bob", models.OperationRecord{
		MediaKind: models.MediaImage,
		Direction: models.DirectionEncode,
		FileName:  "cover.png",
		Outcome:   models.OutcomeRecordSuccess,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(h.out.String(), "cover.png")
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestApp_KeyModeToggleKeepsBoth(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----\n\n")

	require.NoError(t, h.app.LoadKey(ctx, writeFile(t, "my.pem", []byte("PUB"))))
	require.NoError(t, h.app.PasteKey(ctx))
	assert.Contains(t, h.out.String(), "Key: public_key.pem (from text)")

	require.NoError(t, h.app.ToggleKeyMode(ctx))
	assert.Contains(t, h.out.String(), "Key mode: upload, key: my.pem")

	require.NoError(t, h.app.ToggleKeyMode(ctx))
	assert.Contains(t, h.out.String(), "Key mode: text, key: public_key.pem")
}

func TestApp_SecretFromPrompt(t *testing.T) {
	h := newHarness(t, "", "line one\nline two\n\n")

	require.NoError(t, h.app.EnterSecret(context.Background(), ""))
	st := h.app.session.Snapshot()
	assert.Equal(t, len("line one\nline two"), st.PayloadBytes)
	assert.Contains(t, h.out.String(), "capacity unknown")
}

func TestApp_CapacityRejectsDecode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", "")

	assert.EqualError(t, h.app.Capacity(ctx), models.MsgMissingFileOrKey)
	require.NoError(t, h.app.SetDirection(ctx, "decode"))
	assert.Error(t, h.app.Capacity(ctx))
}

func TestApp_SelectTabRejectsUnknownKind(t *testing.T) {
	h := newHarness(t, "", "")

	assert.Error(t, h.app.SelectTab(context.Background(), "gif"))
	assert.Error(t, h.app.SetDirection(context.Background(), "sideways"))
	assert.Error(t, h.app.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.png")))
}

func TestApp_GenerateKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", "")
	h.svc.keys = keyArchive(t)

	require.NoError(t, h.app.GenerateKeys(ctx))
	assert.Contains(t, h.out.String(), models.MsgKeysGenerated)
	assert.FileExists(t, filepath.Join(h.keysDir, "public_key.pem"))
	assert.FileExists(t, filepath.Join(h.keysDir, "private_key.pem"))
}

func TestApp_GenerateKeysConnectionError(t *testing.T) {
	h := newHarness(t, "", "")
	h.svc.keysErr = client.ErrUnavailable

	err := h.app.GenerateKeys(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, err.Error(), models.MsgKeysConnection)
}

func TestApp_Show(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "", "")

	require.NoError(t, h.app.LoadFile(ctx, writeFile(t, "beach.png", pngHeader)))
	require.NoError(t, h.app.Show(ctx))
	out := h.out.String()
	assert.Contains(t, out, "Tab:      image, encode")
	assert.Contains(t, out, "File:     beach.png")
	assert.Contains(t, out, "Key:      none")
}
