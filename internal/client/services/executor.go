package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/stegkeeper/internal/auth"
	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/logging"
	"github.com/dmitrijs2005/stegkeeper/internal/mediax"
)

// Executor validates a submission, sends it to the service endpoint of its
// (media kind, direction) pair and classifies the answer. Every outcome the
// service is responsible for is handed to the Recorder.
type Executor struct {
	client   client.Client
	identity auth.Provider
	recorder Recorder
	log      logging.Logger
}

// NewExecutor wires an executor. identity and recorder may be nil, in which
// case every call is anonymous and nothing is recorded.
func NewExecutor(c client.Client, identity auth.Provider, recorder Recorder, log logging.Logger) *Executor {
	if identity == nil {
		identity = auth.Anonymous{}
	}
	return &Executor{client: c, identity: identity, recorder: recorder, log: log}
}

// Validate checks the local preconditions of a submission. A non-empty
// message means the submission must not leave the client.
func Validate(direction models.Direction, kind models.MediaKind, a models.Artifacts) string {
	if a.File == nil || len(a.File.Data) == 0 || a.Key == nil || len(a.Key.Data) == 0 {
		return models.MsgMissingFileOrKey
	}
	if direction == models.DirectionEncode && a.Payload == "" {
		return models.MsgMissingSecret
	}
	if !kind.Valid() {
		return models.MsgUnsupportedMedia
	}
	return ""
}

// Execute runs one submission. It never returns a raw error; failures are
// folded into the outcome kind and message.
func (e *Executor) Execute(ctx context.Context, direction models.Direction, kind models.MediaKind, a models.Artifacts) models.OperationOutcome {
	out := models.OperationOutcome{Direction: direction, MediaKind: kind}
	if a.File != nil {
		out.FileName = a.File.Name
	}

	if msg := Validate(direction, kind, a); msg != "" {
		out.Kind = models.OutcomeLocalValidation
		out.Message = msg
		return out
	}

	log := e.log.With("direction", direction, "kind", kind, "file", out.FileName)
	log.Info(ctx, "submission started", "key_origin", a.Key.Origin, "payload_bytes", len(a.Payload))

	file := client.Upload{Name: a.File.Name, Data: a.File.Data}
	key := client.Upload{Name: a.Key.Name, Data: a.Key.Data}

	var err error
	switch direction {
	case models.DirectionEncode:
		var res *client.EncodeResult
		res, err = e.client.Encode(ctx, kind, file, key, a.Payload)
		if err == nil {
			out.Result = res.Data
			out.ResultName = kind.EncodedFileName()
			out.ResultType = resultType(res)
			if info := mediax.Probe(res.Data); info.Family != "" && !info.Matches(string(kind)) {
				log.Warn(ctx, "encoded result does not look like the selected media", "sniffed", info.MIME)
			}
		}
	case models.DirectionDecode:
		out.Secret, err = e.client.Decode(ctx, kind, file, key)
	}

	classify(&out, err)
	log.Info(ctx, "submission finished", "outcome", out.Kind, "status", out.StatusCode)

	e.record(ctx, out)
	return out
}

func resultType(res *client.EncodeResult) string {
	if res.ContentType != "" && res.ContentType != "application/octet-stream" {
		return res.ContentType
	}
	return mediax.Probe(res.Data).MIME
}

func classify(out *models.OperationOutcome, err error) {
	if err == nil {
		out.Kind = models.OutcomeSuccess
		out.StatusCode = http.StatusOK
		if out.Direction == models.DirectionEncode {
			out.Message = models.MsgEncodeSuccess
		} else {
			out.Message = models.MsgDecodeSuccess
		}
		return
	}

	var se *client.StatusError
	if errors.As(err, &se) {
		out.StatusCode = se.Code
		out.Message = se.Message
	}

	switch {
	case errors.Is(err, client.ErrUnauthorized):
		out.Kind = models.OutcomeAuthFailure
		if out.Message == "" {
			out.Message = models.MsgAuthFailureDefault
		}
	case errors.Is(err, client.ErrDestroyed):
		out.Kind = models.OutcomeDestroyed
		if out.Message == "" {
			out.Message = models.MsgFileDestroyed
		}
	case se != nil, errors.Is(err, client.ErrMalformedResponse):
		out.Kind = models.OutcomeServiceError
		if out.Message == "" {
			out.Message = models.MsgOperationFailed
		}
	default:
		out.Kind = models.OutcomeTransportError
		out.Message = models.MsgConnectionFailed
	}
}

func (e *Executor) record(ctx context.Context, out models.OperationOutcome) {
	if e.recorder == nil {
		return
	}
	outcome, ok := out.Kind.RecordOutcome()
	if !ok {
		return
	}
	id, ok := e.identity.Current(ctx)
	if !ok {
		return
	}

	rec := models.OperationRecord{
		MediaKind: out.MediaKind,
		Direction: out.Direction,
		FileName:  out.FileName,
		Outcome:   outcome,
	}
	if !out.Succeeded() {
		rec.Detail = out.Message
	}
	// an audit failure must not change what the operator sees
	_, _ = e.recorder.Record(ctx, id.OwnerID, rec)
}
