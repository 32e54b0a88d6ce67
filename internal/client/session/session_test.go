package session

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/services"
	"github.com/dmitrijs2005/stegkeeper/internal/client/storage"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	unauthorized = &client.StatusError{Code: http.StatusUnauthorized, Message: "Integrity check failed."}
	destroyed    = &client.StatusError{Code: http.StatusGone, Message: "Tampering detected. File destroyed."}
)

func newSession(t *testing.T, fs *fakeService, kind models.MediaKind, dir models.Direction, results storage.ResultStore) *Session {
	t.Helper()
	exec := services.NewExecutor(fs, nil, nil, logging.Discard())
	s, err := New(kind, dir, Deps{Executor: exec, Checker: fs, Results: results, Log: logging.Discard()})
	require.NoError(t, err)
	return s
}

func readyForDecode(t *testing.T, s *Session) {
	t.Helper()
	s.SetFile(context.Background(), "beach.png", []byte("encoded"))
	s.SetKeyBlob("private_key.pem", []byte("PRIVATE"))
}

func TestNew_Validates(t *testing.T) {
	_, err := New("text", models.DirectionEncode, Deps{})
	require.Error(t, err)
	_, err = New(models.MediaImage, "sideways", Deps{})
	require.Error(t, err)
}

func TestSubmit_NothingSelected(t *testing.T) {
	fs := &fakeService{}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)

	out := s.Submit(context.Background())
	assert.Equal(t, models.OutcomeLocalValidation, out.Kind)
	assert.Equal(t, models.MsgMissingFileOrKey, out.Message)
	assert.Zero(t, fs.ops())

	st := s.Snapshot()
	assert.Equal(t, models.StatusError, st.Status.Level)
	assert.False(t, st.Busy)
	assert.Equal(t, 3, st.Attempts.Remaining)
}

func TestSubmit_EncodeNeedsPayload(t *testing.T) {
	fs := &fakeService{}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	s.SetFile(context.Background(), "beach.png", []byte("cover"))
	s.SetKeyText("-----BEGIN PUBLIC KEY-----")

	out := s.Submit(context.Background())
	assert.Equal(t, models.MsgMissingSecret, out.Message)
	assert.Zero(t, fs.ops())
}

func TestPayloadIsMeasuredInBytes(t *testing.T) {
	s := newSession(t, &fakeService{}, models.MediaImage, models.DirectionEncode, nil)
	s.SetPayload("héllo, 世界")

	st := s.Snapshot()
	assert.Equal(t, 9, st.PayloadChars)
	assert.Equal(t, 14, st.PayloadBytes)
	assert.Greater(t, st.PayloadBytes, st.PayloadChars)
}

func TestDecode_AttemptsThenDestruction(t *testing.T) {
	fs := &fakeService{replies: []reply{
		{err: unauthorized}, {err: unauthorized}, {err: unauthorized}, {err: destroyed},
	}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	readyForDecode(t, s)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		out := s.Submit(ctx)
		require.Equal(t, models.OutcomeAuthFailure, out.Kind)
		st := s.Snapshot()
		assert.Equal(t, want, st.Attempts.Remaining)
		assert.False(t, st.Attempts.Corrupted)
		assert.NotNil(t, st.File)
		assert.Equal(t, models.StatusWarning, st.Status.Level)
		assert.Equal(t, "Integrity check failed.", st.Status.Message)
	}
	assert.Equal(t, "last_chance", s.Snapshot().Attempts.Phase)

	out := s.Submit(ctx)
	require.Equal(t, models.OutcomeDestroyed, out.Kind)
	st := s.Snapshot()
	assert.True(t, st.Attempts.Corrupted)
	assert.Nil(t, st.File, "the destroyed file is discarded")
	assert.Equal(t, models.StatusDestruction, st.Status.Level)
	assert.Equal(t, 4, fs.ops())

	// refused locally from now on
	out = s.Submit(ctx)
	assert.Equal(t, models.OutcomeLocalValidation, out.Kind)
	assert.Equal(t, models.MsgFileDestroyed, out.Message)
	assert.Equal(t, 4, fs.ops())
	assert.False(t, s.Snapshot().CanSubmit())
}

func TestDecode_DestroyedOnFirstAttempt(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: destroyed}}}
	s := newSession(t, fs, models.MediaAudio, models.DirectionDecode, nil)
	readyForDecode(t, s)

	s.Submit(context.Background())
	st := s.Snapshot()
	assert.True(t, st.Attempts.Corrupted)
	assert.Zero(t, st.Attempts.Remaining)
	assert.Nil(t, st.File)
}

func TestDecode_SuccessRestoresBudget(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: unauthorized}, {secret: "meet at noon"}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	readyForDecode(t, s)
	ctx := context.Background()

	s.Submit(ctx)
	assert.Equal(t, 2, s.Snapshot().Attempts.Remaining)

	out := s.Submit(ctx)
	require.True(t, out.Succeeded())
	assert.Equal(t, "meet at noon", out.Secret)

	st := s.Snapshot()
	assert.Equal(t, 3, st.Attempts.Remaining)
	assert.Equal(t, models.MsgDecodeSuccess, st.Status.Message)
	assert.Equal(t, len("meet at noon"), st.PayloadBytes)
	require.NotNil(t, st.LastOutcome)
	assert.Equal(t, "meet at noon", st.LastOutcome.Secret)
}

func TestEncode_AuthFailureKeepsBudget(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: unauthorized}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()
	s.SetFile(ctx, "beach.png", []byte("cover"))
	s.SetKeyBlob("public_key.pem", []byte("PUBLIC"))
	s.SetPayload("hi")

	out := s.Submit(ctx)
	require.Equal(t, models.OutcomeAuthFailure, out.Kind)
	assert.Equal(t, 3, s.Snapshot().Attempts.Remaining)
}

func TestEncode_DestroyedAlsoCorrupts(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: destroyed}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()
	s.SetFile(ctx, "beach.png", []byte("cover"))
	s.SetKeyBlob("public_key.pem", []byte("PUBLIC"))
	s.SetPayload("hi")

	s.Submit(ctx)
	st := s.Snapshot()
	assert.True(t, st.Attempts.Corrupted)
	assert.Nil(t, st.File)
}

func TestReset_IsIdempotentAfterTerminalStates(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: destroyed}, {secret: "x"}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	ctx := context.Background()

	readyForDecode(t, s)
	s.Submit(ctx)
	require.True(t, s.Snapshot().Attempts.Corrupted)

	for _, prepare := range []func(){
		func() {},
		func() { readyForDecode(t, s); s.Submit(ctx) },
	} {
		prepare()
		s.Reset(ctx)
		s.Reset(ctx)

		st := s.Snapshot()
		assert.Equal(t, 3, st.Attempts.Remaining)
		assert.False(t, st.Attempts.Corrupted)
		assert.Nil(t, st.File)
		assert.Empty(t, st.KeyName)
		assert.Zero(t, st.PayloadBytes)
		assert.Nil(t, st.LastOutcome)
		assert.Equal(t, models.Status{}, st.Status)
		assert.Equal(t, models.CapacityIdle, st.Capacity.Status)
	}
}

func TestNewFileAfterCorruptionGetsFreshBudget(t *testing.T) {
	fs := &fakeService{replies: []reply{{err: destroyed}, {secret: "ok"}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	ctx := context.Background()

	readyForDecode(t, s)
	s.Submit(ctx)
	require.True(t, s.Snapshot().Attempts.Corrupted)

	s.SetFile(ctx, "other.png", []byte("other"))
	st := s.Snapshot()
	assert.False(t, st.Attempts.Corrupted)
	assert.Equal(t, 3, st.Attempts.Remaining)

	out := s.Submit(ctx)
	assert.True(t, out.Succeeded())
}

func TestCapacity_AdvisoryOnly(t *testing.T) {
	dir := t.TempDir()
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)
	fs := &fakeService{
		capBodies: []string{`{"max_bytes": 512}`},
		replies:   []reply{{result: &client.EncodeResult{Data: png, ContentType: "image/png"}}},
	}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, storage.NewLocalStore(dir))
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", png)
	snap := s.AwaitCapacity(ctx)
	require.Equal(t, models.CapacityReady, snap.Status)
	require.Equal(t, int64(512), snap.Quote.MaxBytes)

	s.SetKeyBlob("public_key.pem", []byte("PUBLIC"))
	s.SetPayload(string(make([]byte, 600)))

	st := s.Snapshot()
	assert.True(t, st.Meter.Known)
	assert.True(t, st.Meter.Over)
	assert.GreaterOrEqual(t, st.Meter.Percent, 100.0)
	assert.True(t, st.CanSubmit(), "capacity never blocks submission")

	out := s.Submit(ctx)
	require.True(t, out.Succeeded())
	assert.Equal(t, models.MsgEncodeSuccess, out.Message)
	require.NotEmpty(t, out.SavedTo)

	b, err := os.ReadFile(out.SavedTo)
	require.NoError(t, err)
	assert.Equal(t, png, b)
	assert.Equal(t, models.StatusSuccess, s.Snapshot().Status.Level)
}

func TestCapacity_LoadingReadsSaturated(t *testing.T) {
	gate := make(chan struct{})
	fs := &fakeService{capReplies: []reply{{gate: gate}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", []byte("cover"))
	st := s.Snapshot()
	assert.Equal(t, models.CapacityLoading, st.Capacity.Status)
	assert.False(t, st.Meter.Known)
	assert.Equal(t, 100.0, st.Meter.Percent)

	close(gate)
	assert.Equal(t, models.CapacityReady, s.AwaitCapacity(ctx).Status)
}

func TestCapacity_StaleAfterIdenticalReplacement(t *testing.T) {
	gate := make(chan struct{})
	fs := &fakeService{
		capBodies:  []string{`{"max_bytes": 512}`, `{"max_bytes": 512}`},
		capReplies: []reply{{}, {gate: gate}},
	}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", []byte("same bytes"))
	require.Equal(t, models.CapacityReady, s.AwaitCapacity(ctx).Status)

	s.SetFile(ctx, "beach.png", []byte("same bytes"))
	st := s.Snapshot()
	assert.Equal(t, models.CapacityLoading, st.Capacity.Status)
	assert.Nil(t, st.Capacity.Quote)
	assert.False(t, st.Meter.Known, "the earlier quote must not be reused")

	close(gate)
	s.AwaitCapacity(ctx)
	assert.Equal(t, 2, fs.caps())
	assert.True(t, s.Snapshot().Meter.Known)
}

func TestCapacity_FailureDoesNotBlock(t *testing.T) {
	fs := &fakeService{
		capReplies: []reply{{err: client.ErrUnavailable}},
		replies:    []reply{{result: &client.EncodeResult{Data: []byte("x")}}},
	}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", []byte("cover"))
	require.Equal(t, models.CapacityFailed, s.AwaitCapacity(ctx).Status)

	s.SetKeyBlob("public_key.pem", []byte("PUBLIC"))
	s.SetPayload("hello")
	out := s.Submit(ctx)
	assert.True(t, out.Succeeded())
	assert.Empty(t, out.SavedTo)
}

func TestCapacity_NotQueriedWhenDecoding(t *testing.T) {
	fs := &fakeService{}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", []byte("encoded"))
	assert.Equal(t, models.CapacityIdle, s.AwaitCapacity(ctx).Status)
	assert.Zero(t, fs.caps())
}

func TestDirectionSwitchInvalidatesEverything(t *testing.T) {
	fs := &fakeService{}
	s := newSession(t, fs, models.MediaImage, models.DirectionEncode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "beach.png", []byte("cover"))
	s.AwaitCapacity(ctx)
	s.SetKeyText("PEM TEXT")
	assert.Equal(t, "public_key.pem", s.Snapshot().KeyName)
	before := s.Snapshot()

	require.NoError(t, s.SetDirection(ctx, models.DirectionDecode))
	st := s.Snapshot()
	assert.Equal(t, models.DirectionDecode, st.Direction)
	assert.Nil(t, st.File)
	assert.Nil(t, st.Capacity.Quote)
	assert.Empty(t, st.KeyName)
	assert.NotEqual(t, before.ID, st.ID)
	assert.Greater(t, st.Epoch, before.Epoch)

	s.SetKeyText("PEM TEXT")
	assert.Equal(t, "private_key.pem", s.Snapshot().KeyName)
	assert.Equal(t, models.KeyDerived, s.Snapshot().KeyOrigin)
}

func TestSelectTab(t *testing.T) {
	s := newSession(t, &fakeService{}, models.MediaImage, models.DirectionDecode, nil)
	ctx := context.Background()
	readyForDecode(t, s)

	require.NoError(t, s.SelectTab(ctx, models.MediaVideo))
	st := s.Snapshot()
	assert.Equal(t, models.MediaVideo, st.MediaKind)
	assert.Equal(t, models.DirectionDecode, st.Direction, "the direction survives a tab switch")
	assert.Nil(t, st.File)

	require.Error(t, s.SelectTab(ctx, "text"))
}

func TestKeyModeTogglePreservesUpload(t *testing.T) {
	s := newSession(t, &fakeService{}, models.MediaImage, models.DirectionDecode, nil)

	s.SetKeyBlob("my_key.pem", []byte("UPLOADED"))
	s.SetKeyText("PASTED")
	assert.Equal(t, models.KeyDerived, s.Snapshot().KeyOrigin)

	s.SetKeyText("")
	assert.Empty(t, s.Snapshot().KeyName)

	s.SetKeyMode(models.KeyModeUpload)
	st := s.Snapshot()
	assert.Equal(t, "my_key.pem", st.KeyName)
	assert.Equal(t, models.KeyUploaded, st.KeyOrigin)
}

func TestMediaMismatchIsOnlyAWarning(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)
	fs := &fakeService{replies: []reply{{secret: "s"}}}
	s := newSession(t, fs, models.MediaAudio, models.DirectionDecode, nil)
	ctx := context.Background()

	s.SetFile(ctx, "song.wav", png)
	s.SetKeyBlob("private_key.pem", []byte("PRIVATE"))

	st := s.Snapshot()
	assert.Contains(t, st.MediaWarning, "does not look like audio")
	require.NotNil(t, st.File)
	assert.Equal(t, "image/png", st.File.Media)
	assert.True(t, s.Submit(ctx).Succeeded())
}

func TestOutOfOrderAnswers(t *testing.T) {
	gate := make(chan struct{})
	fs := &fakeService{replies: []reply{
		{secret: "first", gate: gate},
		{secret: "second"},
	}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	readyForDecode(t, s)
	ctx := context.Background()

	firstDone := make(chan models.OperationOutcome, 1)
	go func() { firstDone <- s.Submit(ctx) }()
	require.Eventually(t, func() bool { return fs.ops() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Snapshot().Busy)

	second := s.Submit(ctx)
	require.False(t, second.Stale)
	assert.Equal(t, "second", second.Secret)

	close(gate)
	first := <-firstDone
	assert.True(t, first.Stale)
	assert.Equal(t, "first", first.Secret)

	st := s.Snapshot()
	require.NotNil(t, st.LastOutcome)
	assert.Equal(t, "second", st.LastOutcome.Secret)
	assert.False(t, st.Busy)
}

func TestLateAnswerAfterResetIsIgnored(t *testing.T) {
	gate := make(chan struct{})
	fs := &fakeService{replies: []reply{{err: destroyed, gate: gate}}}
	s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
	readyForDecode(t, s)
	ctx := context.Background()

	done := make(chan models.OperationOutcome, 1)
	go func() { done <- s.Submit(ctx) }()
	require.Eventually(t, func() bool { return fs.ops() == 1 }, time.Second, 5*time.Millisecond)

	s.Reset(ctx)
	readyForDecode(t, s)
	close(gate)

	out := <-done
	assert.True(t, out.Stale)
	assert.Equal(t, models.OutcomeDestroyed, out.Kind)

	st := s.Snapshot()
	assert.False(t, st.Attempts.Corrupted, "a destruction verdict for an abandoned session is not applied")
	assert.NotNil(t, st.File)
	assert.Nil(t, st.LastOutcome)
}

func TestLateAnswerForReplacedFileIsIgnored(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
	}{
		{name: "destroyed", reply: reply{err: destroyed}},
		{name: "auth failure", reply: reply{err: unauthorized}},
		{name: "success", reply: reply{secret: "old secret"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gate := make(chan struct{})
			r := tc.reply
			r.gate = gate
			fs := &fakeService{replies: []reply{r}}
			s := newSession(t, fs, models.MediaImage, models.DirectionDecode, nil)
			readyForDecode(t, s)
			ctx := context.Background()

			done := make(chan models.OperationOutcome, 1)
			go func() { done <- s.Submit(ctx) }()
			require.Eventually(t, func() bool { return fs.ops() == 1 }, time.Second, 5*time.Millisecond)

			s.SetFile(ctx, "other.png", []byte("other encoded"))
			assert.False(t, s.Snapshot().Busy)
			close(gate)

			out := <-done
			assert.True(t, out.Stale)

			st := s.Snapshot()
			require.NotNil(t, st.File, "the replacement file survives a verdict about its predecessor")
			assert.Equal(t, "other.png", st.File.Name)
			assert.False(t, st.Attempts.Corrupted)
			assert.Equal(t, 3, st.Attempts.Remaining)
			assert.Zero(t, st.PayloadBytes)
			assert.Nil(t, st.LastOutcome)
			assert.False(t, st.Busy)
		})
	}
}
