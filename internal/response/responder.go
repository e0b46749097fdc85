package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"readinglog/internal/types"
)

type Responder struct {
	DebugMode bool
}

// RespondError picks status and log level from the error kind. Client errors keep their message; anything else
// goes through RespondAndLogError.
func (rr *Responder) RespondError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		rr.RespondAndLogCustom(w, ctx, err, slog.LevelWarn, http.StatusBadRequest)
	case errors.Is(err, types.ErrNotFound):
		rr.RespondAndLogCustom(w, ctx, err, slog.LevelInfo, http.StatusNotFound)
	default:
		rr.RespondAndLogError(w, ctx, err)
	}
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, http.StatusInternalServerError, err, errId)
}

// RespondAndLogCustom shows err's message to the client with the given status.
func (rr *Responder) RespondAndLogCustom(w http.ResponseWriter, ctx context.Context, err error, lvl slog.Level, status int) {
	log(ctx, lvl, err.Error())
	rr.renderMessage(w, ctx, status, err.Error())
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, data any) {
	rr.SendJsonStatus(w, ctx, http.StatusOK, data)
}

func (rr *Responder) SendJsonStatus(w http.ResponseWriter, ctx context.Context, status int, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, err error, errId string) {
	var uerr *types.UpstreamError

	switch {
	case rr.DebugMode:
		rr.renderMessage(w, ctx, status, err.Error())
	case errors.As(err, &uerr) && uerr.Message != "":
		rr.renderMessage(w, ctx, status, uerr.Service+" error: "+uerr.Message+". Error ID: "+errId)
	default:
		rr.renderMessage(w, ctx, status, "Unknown error occurred while processing your request. Error ID: "+errId)
	}
}

func (rr *Responder) renderMessage(w http.ResponseWriter, ctx context.Context, status int, message string) {
	r, s := utf8.DecodeRuneInString(message)
	bs, err := json.Marshal(map[string]any{
		"error": string(unicode.ToUpper(r)) + message[s:],
	})
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
