// Package response implements the closed set of reply shapes every plugin
// adapter is allowed to construct, and their lowering onto the wire
// envelope defined by the extension protocol.
package response

import (
	"strconv"

	"github.com/jingkaihe/hostext/gen/extension"
)

// Kind tags which of the six sanctioned reply shapes a Reply carries.
type Kind int

const (
	KindSuccess Kind = iota
	KindSuccessWithID
	KindSuccessWithCode
	KindFailure
	KindConstraint
	KindReadonly
)

// Reply is the only sanctioned way for adapters to construct an envelope.
// Construct one with the package-level constructors below.
type Reply struct {
	kind    Kind
	code    int32
	id      string
	message string
	rows    []map[string]string
}

// Success reports an ordinary success with no auxiliary payload.
func Success() *Reply {
	return &Reply{kind: KindSuccess}
}

// SuccessWithID reports success and attaches a stringified row identifier,
// used by insert to return the assigned rowid.
func SuccessWithID(id int64) *Reply {
	return &Reply{kind: KindSuccessWithID, id: strconv.FormatInt(id, 10)}
}

// SuccessWithCode reports success but places a non-zero application code on
// the status record, used by the logger adapter's features reply.
func SuccessWithCode(code int32) *Reply {
	return &Reply{kind: KindSuccessWithCode, code: code}
}

// Failure reports a generic failure with a descriptive message.
func Failure(message string) *Reply {
	return &Reply{kind: KindFailure, message: message}
}

// Constraint reports a plugin-signaled constraint (e.g. uniqueness)
// rejection. Never used for "row not found" — that is Failure.
func Constraint() *Reply {
	return &Reply{kind: KindConstraint}
}

// Readonly reports that a mutation was attempted against a readonly table.
func Readonly() *Reply {
	return &Reply{kind: KindReadonly}
}

// Rows attaches a full row sequence to a Success reply, for adapters (like
// "columns" and "generate") that hand back more than a single status row.
func (r *Reply) Rows(rows []map[string]string) *Reply {
	r.rows = rows
	return r
}

// Kind reports which sanctioned shape this reply carries.
func (r *Reply) Kind() Kind {
	return r.kind
}

func (r *Reply) statusRow() map[string]string {
	switch r.kind {
	case KindSuccess, KindSuccessWithCode:
		return map[string]string{"status": "success"}
	case KindSuccessWithID:
		return map[string]string{"status": "success", "id": r.id}
	case KindFailure:
		return map[string]string{"status": "failure", "message": r.message}
	case KindConstraint:
		return map[string]string{"status": "constraint"}
	case KindReadonly:
		return map[string]string{"status": "readonly"}
	default:
		return map[string]string{"status": "failure", "message": "unknown reply kind"}
	}
}

// ToExtensionResponse lowers the reply onto the wire envelope (§3, §4.9).
func (r *Reply) ToExtensionResponse() *extension.ExtensionResponse {
	code := int32(0)
	switch r.kind {
	case KindSuccessWithCode:
		code = r.code
	case KindFailure, KindConstraint, KindReadonly:
		code = 1
	}

	rows := r.rows
	if rows == nil {
		rows = []map[string]string{r.statusRow()}
	}

	return &extension.ExtensionResponse{
		Status:   &extension.ExtensionStatus{Code: code, Message: r.message},
		Response: rows,
	}
}
