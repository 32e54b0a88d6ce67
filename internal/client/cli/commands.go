package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/client/services"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
)

// OutcomeError is returned by Submit when the operation did not succeed.
type OutcomeError struct {
	Outcome models.OperationOutcome
}

func (e *OutcomeError) Error() string {
	if e.Outcome.Message != "" {
		return e.Outcome.Message
	}
	return models.MsgOperationFailed
}

const historyTimeLayout = "2006-01-02 15:04:05"

func (a *App) owner(ctx context.Context) (string, error) {
	id, ok := a.identity.Current(ctx)
	if !ok {
		return "", common.ErrAnonymous
	}
	return id.OwnerID, nil
}

// Status probes the service and shows who the client acts as.
func (a *App) Status(ctx context.Context) error {
	if err := a.probe(ctx); err != nil {
		fmt.Fprintf(a.out, "Service:  offline (%v)\n", err)
	} else {
		fmt.Fprintln(a.out, "Service:  online")
	}
	if id, ok := a.identity.Current(ctx); ok {
		fmt.Fprintf(a.out, "Identity: %s (expires %s)\n", id.OwnerID, id.ExpiresAt.Local().Format(historyTimeLayout))
	} else {
		fmt.Fprintln(a.out, "Identity: anonymous")
	}
	return nil
}

// Login reads a bearer token without echo and makes it current.
func (a *App) Login(ctx context.Context) error {
	token, err := GetSecret("Bearer token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	return a.LoginToken(ctx, string(token))
}

// LoginToken makes token current without prompting.
func (a *App) LoginToken(ctx context.Context, token string) error {
	id, err := a.authService.Login(ctx, strings.TrimSpace(token))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", id.OwnerID)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) SelectTab(ctx context.Context, arg string) error {
	kind, err := models.ParseMediaKind(arg)
	if err != nil {
		return err
	}
	if err := a.session.SelectTab(ctx, kind); err != nil {
		return err
	}
	st := a.session.Snapshot()
	fmt.Fprintf(a.out, "Tab: %s, %s\n", st.MediaKind, st.Direction)
	return nil
}

func (a *App) SetDirection(ctx context.Context, arg string) error {
	direction, err := models.ParseDirection(arg)
	if err != nil {
		return err
	}
	if err := a.session.SetDirection(ctx, direction); err != nil {
		return err
	}
	st := a.session.Snapshot()
	fmt.Fprintf(a.out, "Tab: %s, %s\n", st.MediaKind, st.Direction)
	return nil
}

// LoadFile selects the cover or encoded file from disk.
func (a *App) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f := a.session.SetFile(ctx, filepath.Base(path), data)
	st := a.session.Snapshot()
	if st.File != nil && st.File.Media != "" {
		fmt.Fprintf(a.out, "File: %s, %d bytes (%s)\n", f.Name, f.Size(), st.File.Media)
	} else {
		fmt.Fprintf(a.out, "File: %s, %d bytes\n", f.Name, f.Size())
	}
	if w := st.MediaWarning; w != "" {
		fmt.Fprintln(a.out, "Warning:", w)
	}
	return nil
}

// LoadKey selects a key file from disk and makes it authoritative.
func (a *App) LoadKey(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	a.session.SetKeyBlob(filepath.Base(path), data)
	fmt.Fprintf(a.out, "Key: %s\n", filepath.Base(path))
	return nil
}

// PasteKey reads PEM text and makes it authoritative.
func (a *App) PasteKey(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Paste the key", a.out)
	if err != nil {
		return err
	}
	return a.SetKeyText(ctx, text)
}

// SetKeyText makes text the authoritative key without prompting.
func (a *App) SetKeyText(_ context.Context, text string) error {
	a.session.SetKeyText(text)
	if st := a.session.Snapshot(); st.KeyName != "" {
		fmt.Fprintf(a.out, "Key: %s (from text)\n", st.KeyName)
	} else {
		fmt.Fprintln(a.out, "Key: none")
	}
	return nil
}

// ToggleKeyMode switches between the uploaded key and the pasted text.
// Neither representation is discarded.
func (a *App) ToggleKeyMode(_ context.Context) error {
	mode := models.KeyModeText
	if a.session.Snapshot().KeyMode == models.KeyModeText {
		mode = models.KeyModeUpload
	}
	a.session.SetKeyMode(mode)
	st := a.session.Snapshot()
	name := st.KeyName
	if name == "" {
		name = "none"
	}
	fmt.Fprintf(a.out, "Key mode: %s, key: %s\n", st.KeyMode, name)
	return nil
}

// EnterSecret sets the message to embed. Without text it is read from the
// input until an empty line.
func (a *App) EnterSecret(_ context.Context, text string) error {
	if text == "" {
		var err error
		text, err = GetMultiline(a.reader, "Enter the secret message", a.out)
		if err != nil {
			return err
		}
	}
	a.session.SetPayload(text)
	st := a.session.Snapshot()
	fmt.Fprintf(a.out, "Secret: %d bytes, %s\n", st.PayloadBytes, formatMeter(st.Meter))
	return nil
}

// Capacity waits for the pending capacity check of the cover file.
func (a *App) Capacity(ctx context.Context) error {
	st := a.session.Snapshot()
	if st.Direction != models.DirectionEncode {
		return errors.New("capacity applies to encoding only")
	}
	if st.File == nil {
		return errors.New(models.MsgMissingFileOrKey)
	}

	timeout := time.Minute
	if a.config != nil && a.config.RequestTimeout > 0 {
		timeout = a.config.RequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap := a.session.AwaitCapacity(ctx)
	switch snap.Status {
	case models.CapacityReady:
		fmt.Fprintf(a.out, "Capacity: %d bytes", snap.Quote.MaxBytes)
		if snap.Quote.FileType != "" {
			fmt.Fprintf(a.out, " (%s)", snap.Quote.FileType)
		}
		fmt.Fprintln(a.out)
		if snap.Quote.Message != "" {
			fmt.Fprintln(a.out, snap.Quote.Message)
		}
	case models.CapacityFailed:
		fmt.Fprintf(a.out, "Capacity: unknown (%s)\n", snap.Error)
	default:
		fmt.Fprintf(a.out, "Capacity: %s\n", snap.Status)
	}
	fmt.Fprintln(a.out, "Meter:", formatMeter(a.session.Snapshot().Meter))
	return nil
}

// Submit runs the operation and reports the outcome. Anything but a
// success comes back as *OutcomeError.
func (a *App) Submit(ctx context.Context) error {
	fmt.Fprintln(a.out, models.MsgProcessing)
	out := a.session.Submit(ctx)

	if out.Stale {
		fmt.Fprintln(a.out, "The session changed while the request was running; its answer was ignored.")
		return nil
	}
	if !out.Succeeded() {
		if out.Direction == models.DirectionDecode && out.Kind == models.OutcomeAuthFailure {
			at := a.session.Snapshot().Attempts
			if at.Warning != "" {
				fmt.Fprintln(a.out, "Warning:", at.Warning)
			}
			fmt.Fprintf(a.out, "Attempts left: %d\n", at.Remaining)
		}
		return &OutcomeError{Outcome: out}
	}

	fmt.Fprintln(a.out, out.Message)
	switch out.Direction {
	case models.DirectionEncode:
		if out.SavedTo != "" {
			fmt.Fprintln(a.out, "Saved to:", out.SavedTo)
		}
	case models.DirectionDecode:
		fmt.Fprintln(a.out, "Secret:")
		fmt.Fprintln(a.out, out.Secret)
	}
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	a.session.Reset(ctx)
	fmt.Fprintln(a.out, "Session reset.")
	return nil
}

// Show prints the session as the operator sees it.
func (a *App) Show(_ context.Context) error {
	st := a.session.Snapshot()

	fmt.Fprintf(a.out, "Session:  %s (epoch %d)\n", st.ID, st.Epoch)
	fmt.Fprintf(a.out, "Tab:      %s, %s\n", st.MediaKind, st.Direction)
	if st.File != nil {
		fmt.Fprintf(a.out, "File:     %s, %d bytes, %s\n", st.File.Name, st.File.Size, st.File.ContentType)
	} else {
		fmt.Fprintln(a.out, "File:     none")
	}
	if st.MediaWarning != "" {
		fmt.Fprintf(a.out, "Warning:  %s\n", st.MediaWarning)
	}
	if st.KeyName != "" {
		fmt.Fprintf(a.out, "Key:      %s (%s, %s mode)\n", st.KeyName, st.KeyOrigin, st.KeyMode)
	} else {
		fmt.Fprintf(a.out, "Key:      none (%s mode)\n", st.KeyMode)
	}
	if st.Direction == models.DirectionEncode {
		fmt.Fprintf(a.out, "Secret:   %d bytes, %d chars\n", st.PayloadBytes, st.PayloadChars)
		fmt.Fprintf(a.out, "Capacity: %s\n", formatMeter(st.Meter))
	} else {
		fmt.Fprintf(a.out, "Attempts: %s, %d left\n", st.Attempts.Phase, st.Attempts.Remaining)
	}
	if st.Status.Message != "" {
		fmt.Fprintf(a.out, "Status:   [%s] %s\n", st.Status.Level, st.Status.Message)
	}
	return nil
}

// GenerateKeys fetches a new key pair and stores it next to the results.
func (a *App) GenerateKeys(ctx context.Context) error {
	kp, err := a.keys.Generate(ctx)
	st := services.KeyGenerationStatus(err)
	if err != nil {
		return fmt.Errorf("%s (%w)", st.Message, err)
	}
	fmt.Fprintln(a.out, st.Message)
	fmt.Fprintln(a.out, "Archive:    ", kp.ArchivePath)
	fmt.Fprintln(a.out, "Public key: ", kp.PublicPath)
	fmt.Fprintln(a.out, "Private key:", kp.PrivatePath)
	return nil
}

// History lists the audit trail of the current identity, newest first.
func (a *App) History(ctx context.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return err
	}
	records, err := a.audit.History(ctx, owner)
	if err != nil {
		return err
	}
	a.printHistory(records)
	return nil
}

// FollowHistory prints the audit trail every time it grows, until ctx is
// done.
func (a *App) FollowHistory(ctx context.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return err
	}
	updates, err := a.audit.StreamHistory(ctx, owner)
	if err != nil {
		return err
	}
	for records := range updates {
		a.printHistory(records)
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *App) printHistory(records []models.OperationRecord) {
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No operations recorded.")
		return
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-5s %-6s %-9s %s",
			r.Timestamp.Local().Format(historyTimeLayout), r.MediaKind, r.Direction, r.Outcome, r.FileName)
		if r.Detail != "" {
			line += "  " + r.Detail
		}
		fmt.Fprintln(a.out, line)
	}
}

// Verify checks the digest chain of the current identity's audit trail.
func (a *App) Verify(ctx context.Context) error {
	owner, err := a.owner(ctx)
	if err != nil {
		return err
	}
	n, err := a.audit.Verify(ctx, owner)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Audit trail intact: %d records\n", n)
	return nil
}

func formatMeter(m models.Meter) string {
	if !m.Known {
		return "capacity unknown"
	}
	s := fmt.Sprintf("%d of %d bytes (%.0f%%)", m.PayloadBytes, m.MaxBytes, m.Percent)
	if m.Over {
		s += ", over capacity"
	}
	return s
}
