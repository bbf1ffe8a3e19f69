/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/json"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

const defaultLocale = "en"

func (c *Connection) sendAccepted(ctx context.Context, p Provider, op string, msg interface{}) error {
	if err := c.requireAccepted(op); err != nil {
		return err
	}

	work := c.rec

	return work.send(c.execContext(ctx, p, &work), msg)
}

// SendMessage sends a basic message and returns its id.
func (c *Connection) SendMessage(ctx context.Context, p Provider, content string, opts *SendMessageOptions) (string,
	error) {
	msg := &BasicMessage{
		Header:       protocol.NewHeader(protocol.BasicMessageMsgType),
		Content:      content,
		SentTime:     protocol.Timestamp(c.now()),
		Localization: Localization{Locale: defaultLocale},
	}

	if opts != nil {
		msg.MsgType = opts.MsgType
		msg.MsgTitle = opts.MsgTitle

		if opts.RefMsgID != "" {
			msg.Header = msg.Header.Threaded(opts.RefMsgID)
		}
	}

	if err := c.sendAccepted(ctx, p, "send message", msg); err != nil {
		return "", err
	}

	return msg.ID, nil
}

// SignData signs data with my pairwise key.
func (c *Connection) SignData(ctx context.Context, p Provider, data []byte) ([]byte, error) {
	if err := c.requireAccepted("sign data"); err != nil {
		return nil, err
	}

	sig, err := p.Wallet().Sign(ctx, c.rec.MyVerkey, data)
	if err != nil {
		return nil, vcxerr.Collaborator(err, "sign data")
	}

	return sig, nil
}

// VerifySignature checks sig over data against the remote verkey.
func (c *Connection) VerifySignature(ctx context.Context, p Provider, data, sig []byte) (bool, error) {
	if err := c.requireAccepted("verify signature"); err != nil {
		return false, err
	}

	ok, err := p.Wallet().Verify(ctx, c.rec.TheirVerkey, data, sig)
	if err != nil {
		return false, vcxerr.Collaborator(err, "verify signature")
	}

	return ok, nil
}

// SendPing sends a trust ping asking for a response.
func (c *Connection) SendPing(ctx context.Context, p Provider, comment string) error {
	return c.sendAccepted(ctx, p, "send ping", &Ping{
		Header:            protocol.NewHeader(protocol.PingMsgType),
		Comment:           comment,
		ResponseRequested: true,
	})
}

// SendDiscoveryFeatures asks the remote party which protocols it supports.
func (c *Connection) SendDiscoveryFeatures(ctx context.Context, p Provider, query, comment string) error {
	if query == "" {
		query = "*"
	}

	return c.sendAccepted(ctx, p, "send discovery features", &Query{
		Header:  protocol.NewHeader(protocol.QueryMsgType),
		Query:   query,
		Comment: comment,
	})
}

// SendAnswer answers question with one of its valid responses. The response text and the question nonce are signed.
func (c *Connection) SendAnswer(ctx context.Context, p Provider, question, answer []byte) error {
	if err := c.requireAccepted("send answer"); err != nil {
		return err
	}

	q := &Question{}

	msg, err := protocol.NewMessage(question)
	if err != nil {
		return err
	}

	if msg.Type() != protocol.QuestionMsgType {
		return vcxerr.New(vcxerr.MalformedInput, "%s is not a question", msg.Type())
	}

	if err := msg.Decode(q); err != nil {
		return err
	}

	resp := &ValidResponse{}
	if err := json.Unmarshal(answer, resp); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid answer")
	}

	if !validResponse(q, resp.Text) {
		return vcxerr.New(vcxerr.MalformedInput, "%q is not a valid response to question %s", resp.Text, q.ID)
	}

	sig, err := signPayload(ctx, p.Wallet(), c.rec.MyVerkey, []byte(resp.Text+q.Nonce), c.now())
	if err != nil {
		return err
	}

	return c.sendAccepted(ctx, p, "send answer", &Answer{
		Header:            protocol.NewHeader(protocol.AnswerMsgType).Threaded(q.ID),
		Response:          resp.Text,
		ResponseSignature: sig,
	})
}

// SendReuse answers an out-of-band invitation over this connection instead of creating a new one.
func (c *Connection) SendReuse(ctx context.Context, p Provider, invite []byte) error {
	inv, err := ParseInvitation(invite)
	if err != nil {
		return err
	}

	msg := &HandshakeReuse{Header: protocol.NewHeader(protocol.HandshakeReuseMsgType)}
	msg.Thread = &protocol.Thread{ID: msg.ID, PID: inv.ID}

	return c.sendAccepted(ctx, p, "send handshake reuse", msg)
}

func validResponse(q *Question, text string) bool {
	if len(q.ValidResponses) == 0 {
		return text != ""
	}

	for _, r := range q.ValidResponses {
		if r.Text == text {
			return true
		}
	}

	return false
}
