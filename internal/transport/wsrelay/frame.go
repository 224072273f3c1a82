// Package wsrelay is a websocket transport: a relay server that fans out
// channel messages and presence, and a client implementing the transport
// interfaces against it.
package wsrelay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/transport"
)

type op string

const (
	opSubscribe   op = "subscribe"
	opUnsubscribe op = "unsubscribe"
	opPublish     op = "publish"
	opEnter       op = "enter"
	opUpdate      op = "update"
	opLeave       op = "leave"

	opMessage  op = "message"
	opPresence op = "presence"
	opAck      op = "ack"
	opError    op = "error"
)

type frame struct {
	Op       op                 `json:"op"`
	Seq      uint64             `json:"seq,omitempty"`
	Channel  string             `json:"channel,omitempty"`
	Name     string             `json:"name,omitempty"`
	ClientID string             `json:"clientId,omitempty"`
	Data     json.RawMessage    `json:"data,omitempty"`
	Members  []transport.Member `json:"members,omitempty"`
	Code     string             `json:"code,omitempty"`
	Error    string             `json:"error,omitempty"`
}

var ErrClosed = errors.New("relay connection closed")

const (
	codeValidation = "validation"
	codeCapacity   = "capacity"
	codeNotFound   = "not_found"
	codeConflict   = "conflict"
	codeInternal   = "internal"
)

func errorCode(err error) (string, int) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return codeValidation, http.StatusBadRequest
	case apperr.KindCapacity:
		return codeCapacity, http.StatusConflict
	case apperr.KindNotFound:
		return codeNotFound, http.StatusNotFound
	case apperr.KindConflict:
		return codeConflict, http.StatusConflict
	default:
		return codeInternal, http.StatusInternalServerError
	}
}

// codeError rebuilds the error kind reported by the relay.
func codeError(op, code, msg string) error {
	switch code {
	case codeValidation:
		return apperr.Validation(op, "%s", msg)
	case codeCapacity:
		return apperr.Capacity(op, "%s", msg)
	case codeNotFound:
		return apperr.NotFound(op, "%s", msg)
	case codeConflict:
		return apperr.Conflict(op, "%s", msg)
	default:
		return apperr.Transient(op, errors.New(msg))
	}
}
