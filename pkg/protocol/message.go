/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
)

const (
	jsonIDKey     = "@id"
	jsonTypeKey   = "@type"
	jsonThreadKey = "~thread"
)

// Message is a received or outgoing protocol message in its generic map form.
type Message map[string]interface{}

// Thread is the ~thread decorator.
type Thread struct {
	ID  string `json:"thid,omitempty"`
	PID string `json:"pthid,omitempty"`
}

// Header holds the fields every message shares.
type Header struct {
	ID     string  `json:"@id"`
	Type   string  `json:"@type"`
	Thread *Thread `json:"~thread,omitempty"`
}

// NewHeader returns a header with a fresh id.
func NewHeader(msgType string) Header {
	return Header{ID: uuid.New().String(), Type: msgType}
}

// Threaded returns a copy of h attached to thread thid.
func (h Header) Threaded(thid string) Header {
	h.Thread = &Thread{ID: thid}

	return h
}

// NewMessage parses raw JSON into a Message. The message must carry @type.
func NewMessage(raw []byte) (Message, error) {
	var msg Message

	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid message payload")
	}

	if msg.Type() == "" {
		return nil, vcxerr.New(vcxerr.MalformedInput, "message has no @type")
	}

	return msg, nil
}

// NewMessageFromStruct converts a typed message into its map form.
func NewMessageFromStruct(v interface{}) (Message, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return NewMessage(raw)
}

// MustMessage is NewMessageFromStruct for values that are known to marshal.
func MustMessage(v interface{}) Message {
	msg, err := NewMessageFromStruct(v)
	if err != nil {
		panic(err)
	}

	return msg
}

func (m Message) str(key string) string {
	if m == nil {
		return ""
	}

	v, _ := m[key].(string) // nolint:errcheck

	return v
}

// ID returns the message @id.
func (m Message) ID() string {
	return m.str(jsonIDKey)
}

// Type returns the message @type.
func (m Message) Type() string {
	return m.str(jsonTypeKey)
}

func (m Message) thread() map[string]interface{} {
	if m == nil {
		return nil
	}

	th, _ := m[jsonThreadKey].(map[string]interface{}) // nolint:errcheck

	return th
}

// ThreadID returns ~thread.thid, or the message id when the message starts its own thread.
func (m Message) ThreadID() string {
	if thid, ok := m.thread()["thid"].(string); ok && thid != "" {
		return thid
	}

	return m.ID()
}

// ParentThreadID returns ~thread.pthid.
func (m Message) ParentThreadID() string {
	pthid, _ := m.thread()["pthid"].(string) // nolint:errcheck

	return pthid
}

// Decode decodes the message into v using the json field names.
func (m Message) Decode(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           v,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize decoder : %w", err)
	}

	if err = decoder.Decode(map[string]interface{}(m)); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "decode %s", m.Type())
	}

	return nil
}

// JSON returns the message encoded as JSON.
func (m Message) JSON() []byte {
	raw, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return []byte("{}")
	}

	return raw
}

// Attachment is a base64 attachment decorator entry.
type Attachment struct {
	ID       string         `json:"@id"`
	MimeType string         `json:"mime-type"`
	Data     AttachmentData `json:"data"`
}

// AttachmentData holds the attachment payload.
type AttachmentData struct {
	Base64 string `json:"base64"`
}

// NewJSONAttachment encodes v as a JSON attachment with the given id.
func NewJSONAttachment(id string, v interface{}) (Attachment, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Attachment{}, fmt.Errorf("marshal attachment %s: %w", id, err)
	}

	return Attachment{
		ID:       id,
		MimeType: "application/json",
		Data:     AttachmentData{Base64: base64.StdEncoding.EncodeToString(raw)},
	}, nil
}

// DecodeJSON decodes the attachment payload into v.
func (a *Attachment) DecodeJSON(v interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(a.Data.Base64)
	if err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "attachment %s is not base64", a.ID)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "attachment %s", a.ID)
	}

	return nil
}

// DecodeAttachment decodes the attachment with the given id, or the first attachment when none has that id.
func DecodeAttachment(attachments []Attachment, id string, v interface{}) error {
	if len(attachments) == 0 {
		return vcxerr.New(vcxerr.MalformedInput, "message has no %s attachment", id)
	}

	for i := range attachments {
		if attachments[i].ID == id {
			return attachments[i].DecodeJSON(v)
		}
	}

	return attachments[0].DecodeJSON(v)
}

// ProblemReport is the problem-report message shared by every protocol.
type ProblemReport struct {
	Header      `json:",squash"`
	Description ProblemDescription `json:"description"`
	Comment     string             `json:"comment,omitempty"`
}

// ProblemDescription carries the problem code and human readable text.
type ProblemDescription struct {
	Code string `json:"code"`
	En   string `json:"en,omitempty"`
}

// NewProblemReport builds a problem report of the given type on thread thid.
func NewProblemReport(msgType, thid, code, text string) *ProblemReport {
	return &ProblemReport{
		Header:      NewHeader(msgType).Threaded(thid),
		Description: ProblemDescription{Code: code, En: text},
	}
}

// RejectedByPeer is returned by commands that would send on an exchange the remote party ended with report.
func RejectedByPeer(sourceID string, report *ProblemReport) error {
	code := ""
	if report != nil {
		code = report.Description.Code
	}

	return vcxerr.New(vcxerr.ProtocolRejected, "exchange %s was ended by the remote party (%s)", sourceID, code)
}

// Ack is the generic acknowledgement.
type Ack struct {
	Header `json:",squash"`
	Status string `json:"status"`
}

// NewAck builds an ack of the given type on thread thid.
func NewAck(msgType, thid string) *Ack {
	return &Ack{Header: NewHeader(msgType).Threaded(thid), Status: "OK"}
}

// Timestamp returns the wire format used for time fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000Z")
}
