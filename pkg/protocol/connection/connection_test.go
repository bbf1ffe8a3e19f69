/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/internal/agenttest"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

type failingTransport struct {
	transport.Transport
}

func (f *failingTransport) Send(context.Context, *transport.Destination, protocol.Message) error {
	return errors.New("agency unreachable")
}

func types(msgs []*transport.InboxMessage) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Type)
	}

	return out
}

func invite(t *testing.T, alice *agenttest.Agent) (*Connection, string) {
	t.Helper()

	inviter := New("alice-to-bob")
	require.NoError(t, inviter.Connect(context.Background(), alice, nil))
	require.Equal(t, protocol.StateOfferSent, inviter.State())

	details, err := inviter.InviteDetails(false)
	require.NoError(t, err)

	return inviter, details
}

func establish(t *testing.T, alice, bob *agenttest.Agent) (*Connection, *Connection) {
	t.Helper()

	ctx := context.Background()
	inviter, details := invite(t, alice)

	invitee, err := NewWithInvite("bob-to-alice", []byte(details))
	require.NoError(t, err)
	require.NoError(t, invitee.Connect(ctx, bob, &ConnectOptions{ConnectionType: "QR"}))
	require.Equal(t, protocol.StateRequestReceived, invitee.State())

	require.NoError(t, inviter.UpdateState(ctx, alice))
	require.Equal(t, protocol.StateAccepted, inviter.State())

	require.NoError(t, invitee.UpdateState(ctx, bob))
	require.Equal(t, protocol.StateAccepted, invitee.State())

	require.NoError(t, inviter.UpdateState(ctx, alice))
	require.Equal(t, protocol.StateAccepted, inviter.State())
	require.Empty(t, alice.Pending(t, inviter.Verkey()))
	require.Empty(t, bob.Pending(t, invitee.Verkey()))

	return inviter, invitee
}

func TestConnection_Handshake(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")

	inviter, invitee := establish(t, alice, bob)

	require.Equal(t, RoleInviter, inviter.Role())
	require.Equal(t, RoleInvitee, invitee.Role())

	theirs, err := invitee.TheirPwDID()
	require.NoError(t, err)
	require.Equal(t, inviter.PwDID(), theirs)

	theirs, err = inviter.TheirPwDID()
	require.NoError(t, err)
	require.Equal(t, invitee.PwDID(), theirs)

	dest, err := invitee.Destination()
	require.NoError(t, err)
	require.Equal(t, alice.Endpoint, dest.ServiceEndpoint)
	require.Equal(t, []string{inviter.Verkey()}, dest.RecipientKeys)

	raw, err := inviter.Info()
	require.NoError(t, err)

	summary := &Summary{}
	require.NoError(t, json.Unmarshal([]byte(raw), summary))
	require.Equal(t, inviter.PwDID(), summary.Current.DID)
	require.Equal(t, alice.Endpoint, summary.Current.ServiceEndpoint)
	require.Equal(t, bob.Endpoint, summary.Remote.ServiceEndpoint)
	require.Equal(t, "{}", inviter.ProblemReport())
}

func TestConnection_Invitation(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")

	t.Run("not available before connect", func(t *testing.T) {
		_, err := New("x").InviteDetails(false)
		require.ErrorIs(t, err, vcxerr.ErrInvalidState)
	})

	t.Run("abbreviated invitation", func(t *testing.T) {
		inviter, _ := invite(t, alice)

		abbr, err := inviter.InviteDetails(true)
		require.NoError(t, err)
		require.Contains(t, abbr, `"k":[`)

		invitee, err := NewWithInvite("bob", []byte(abbr))
		require.NoError(t, err)
		require.Equal(t, inviter.Verkey(), invitee.TheirVerkey())
		require.Equal(t, protocol.StateInitialized, invitee.State())
	})

	t.Run("out of band invitation carries the goal", func(t *testing.T) {
		inviter := NewOutOfBand("oob", "issue-vc", "To issue a credential")
		require.NoError(t, inviter.Connect(context.Background(), alice, nil))

		details, err := inviter.InviteDetails(false)
		require.NoError(t, err)

		inv, err := ParseInvitation([]byte(details))
		require.NoError(t, err)
		require.Equal(t, "issue-vc", inv.GoalCode)
		require.Equal(t, "To issue a credential", inv.Goal)
		require.Empty(t, alice.Pending(t, inviter.Verkey()))
	})

	t.Run("invalid invitations", func(t *testing.T) {
		for _, raw := range []string{
			`not json`,
			`{"@id":"1","@type":"` + protocol.PingMsgType + `"}`,
			`{"@id":"1","@type":"` + protocol.InvitationMsgType + `","serviceEndpoint":"mem://a"}`,
			`{"@id":"1","@type":"` + protocol.InvitationMsgType + `","recipientKeys":["k"]}`,
			`{"k":["key"],"e":"mem://a"}`,
		} {
			_, err := NewWithInvite("bob", []byte(raw))
			require.ErrorIs(t, err, vcxerr.ErrMalformedInput, raw)
		}
	})

	t.Run("connect twice", func(t *testing.T) {
		inviter, _ := invite(t, alice)
		require.ErrorIs(t, inviter.Connect(context.Background(), alice, nil), vcxerr.ErrInvalidState)
	})
}

func TestConnection_ConnectSendFailure(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")

	_, details := invite(t, alice)

	invitee, err := NewWithInvite("bob", []byte(details))
	require.NoError(t, err)

	bob.T = &failingTransport{Transport: bob.Client}

	err = invitee.Connect(context.Background(), bob, nil)
	require.ErrorIs(t, err, vcxerr.ErrCollaboratorFailure)
	require.Equal(t, protocol.StateInitialized, invitee.State())
	require.Empty(t, invitee.PwDID())
}

func TestConnection_InvalidResponseSignature(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	inviter, details := invite(t, alice)

	invitee, err := NewWithInvite("bob", []byte(details))
	require.NoError(t, err)
	require.NoError(t, invitee.Connect(ctx, bob, nil))

	impostor, err := alice.W.CreateKey(ctx, nil)
	require.NoError(t, err)

	info, err := json.Marshal(&Info{DID: impostor.DID, DIDDoc: newDIDDoc(impostor.DID, impostor.Verkey, alice.Endpoint)})
	require.NoError(t, err)

	sig, err := signPayload(ctx, alice.W, impostor.Verkey, info, time.Now())
	require.NoError(t, err)

	resp := &Response{
		Header:              protocol.NewHeader(protocol.ConnectionResponseType).Threaded(invitee.rec.RequestID),
		ConnectionSignature: sig,
	}

	consumed, err := invitee.UpdateStateWithMessage(ctx, bob, protocol.MustMessage(resp))
	require.NoError(t, err)
	require.True(t, consumed)
	require.Equal(t, protocol.StateUnfulfilled, invitee.State())
	require.Contains(t, invitee.ProblemReport(), problemCodeInvalidSignature)

	require.ElementsMatch(t, []string{protocol.ConnectionRequestType, protocol.ProblemReportMsgType},
		types(alice.Pending(t, inviter.Verkey())))
}

func TestConnection_ProblemReport(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	_, details := invite(t, alice)

	invitee, err := NewWithInvite("bob", []byte(details))
	require.NoError(t, err)
	require.NoError(t, invitee.Connect(ctx, bob, nil))

	report := protocol.NewProblemReport(protocol.ProblemReportMsgType, invitee.rec.RequestID, "request_expired", "late")

	consumed, err := invitee.UpdateStateWithMessage(ctx, bob, protocol.MustMessage(report))
	require.NoError(t, err)
	require.True(t, consumed)
	require.Equal(t, protocol.StateExpired, invitee.State())
	require.Contains(t, invitee.ProblemReport(), "request_expired")

	t.Run("terminal state ignores messages", func(t *testing.T) {
		consumed, err := invitee.UpdateStateWithMessage(ctx, bob, protocol.MustMessage(report))
		require.NoError(t, err)
		require.False(t, consumed)
		require.Equal(t, protocol.StateExpired, invitee.State())
	})
}

func TestConnection_UpdateStateLeavesOtherProtocols(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	inviter, invitee := establish(t, alice, bob)

	dest, err := invitee.Destination()
	require.NoError(t, err)

	offer := protocol.Message{"@id": "offer-1", "@type": protocol.OfferCredentialMsgType}
	require.NoError(t, bob.Transport().Send(ctx, dest, offer))

	require.NoError(t, inviter.UpdateState(ctx, alice))

	pending := alice.Pending(t, inviter.Verkey())
	require.Len(t, pending, 1)
	require.Equal(t, "offer-1", pending[0].UID)
}

func TestConnection_PingAndFeatures(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	inviter, invitee := establish(t, alice, bob)

	require.NoError(t, invitee.SendPing(ctx, bob, "are you there"))
	require.NoError(t, invitee.SendDiscoveryFeatures(ctx, bob, protocol.Prefix+"issue-credential/*", ""))

	require.NoError(t, inviter.UpdateState(ctx, alice))

	require.ElementsMatch(t, []string{protocol.PingResponseMsgType, protocol.DiscloseMsgType},
		types(bob.Pending(t, invitee.Verkey())))

	require.NoError(t, invitee.UpdateState(ctx, bob))
	require.Equal(t, protocol.StateAccepted, invitee.State())
	require.Equal(t, []string{protocol.IssueCredentialPID}, invitee.rec.TheirProtocols)
}

func TestConnection_HandshakeReuse(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	inviter, invitee := establish(t, alice, bob)

	oob := NewOutOfBand("oob", "", "reuse")
	require.NoError(t, oob.Connect(ctx, alice, nil))

	details, err := oob.InviteDetails(false)
	require.NoError(t, err)

	require.ErrorIs(t, New("x").SendReuse(ctx, bob, []byte(details)), vcxerr.ErrInvalidState)
	require.Equal(t, vcxerr.MalformedInput, vcxerr.KindOf(invitee.SendReuse(ctx, bob, []byte(`{}`))))

	require.NoError(t, invitee.SendReuse(ctx, bob, []byte(details)))

	pending := alice.Pending(t, inviter.Verkey())
	require.Len(t, pending, 1)
	require.Equal(t, protocol.HandshakeReuseMsgType, pending[0].Payload.Type())
	require.Equal(t, oob.rec.Invitation.ID, pending[0].Payload.ParentThreadID())

	require.NoError(t, inviter.UpdateState(ctx, alice))
	require.Equal(t, protocol.StateAccepted, inviter.State())

	accepted := bob.Pending(t, invitee.Verkey())
	require.Len(t, accepted, 1)
	require.Equal(t, protocol.HandshakeReuseAcceptedMsgType, accepted[0].Payload.Type())
	require.Equal(t, pending[0].UID, accepted[0].Payload.ThreadID())
	require.Equal(t, oob.rec.Invitation.ID, accepted[0].Payload.ParentThreadID())

	require.NoError(t, invitee.UpdateState(ctx, bob))
	require.Equal(t, protocol.StateAccepted, invitee.State())
	require.Equal(t, protocol.StateOfferSent, oob.State())
}

func TestConnection_SideChannel(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	t.Run("requires an accepted connection", func(t *testing.T) {
		c := New("x")

		_, err := c.SendMessage(ctx, alice, "hi", nil)
		require.ErrorIs(t, err, vcxerr.ErrInvalidState)

		_, err = c.SignData(ctx, alice, []byte("data"))
		require.ErrorIs(t, err, vcxerr.ErrInvalidState)

		require.ErrorIs(t, c.SendPing(ctx, alice, ""), vcxerr.ErrInvalidState)

		_, err = c.Destination()
		require.ErrorIs(t, err, vcxerr.ErrInvalidState)
	})

	inviter, invitee := establish(t, alice, bob)

	t.Run("basic message", func(t *testing.T) {
		id, err := inviter.SendMessage(ctx, alice, "hello", &SendMessageOptions{MsgTitle: "greeting", RefMsgID: "m-0"})
		require.NoError(t, err)

		pending := bob.Pending(t, invitee.Verkey())
		require.Len(t, pending, 1)
		require.Equal(t, id, pending[0].UID)
		require.Equal(t, "m-0", pending[0].Payload.ThreadID())

		msg := &BasicMessage{}
		require.NoError(t, pending[0].Payload.Decode(msg))
		require.Equal(t, "hello", msg.Content)
		require.Equal(t, "greeting", msg.MsgTitle)
	})

	t.Run("sign and verify", func(t *testing.T) {
		sig, err := inviter.SignData(ctx, alice, []byte("payload"))
		require.NoError(t, err)

		ok, err := invitee.VerifySignature(ctx, bob, []byte("payload"), sig)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = invitee.VerifySignature(ctx, bob, []byte("tampered"), sig)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("answer", func(t *testing.T) {
		question := &Question{
			Header:         protocol.NewHeader(protocol.QuestionMsgType),
			QuestionText:   "Alice, are you on the phone with Bob?",
			Nonce:          "1000000",
			ValidResponses: []ValidResponse{{Text: "Yes, it's me"}, {Text: "No, that's not me!"}},
		}

		raw, err := json.Marshal(question)
		require.NoError(t, err)

		require.ErrorIs(t, invitee.SendAnswer(ctx, bob, raw, []byte(`{"text":"maybe"}`)), vcxerr.ErrMalformedInput)
		require.NoError(t, invitee.SendAnswer(ctx, bob, raw, []byte(`{"text":"Yes, it's me"}`)))

		pending := alice.Pending(t, inviter.Verkey())
		require.Len(t, pending, 1)

		answer := &Answer{}
		require.NoError(t, pending[0].Payload.Decode(answer))
		require.Equal(t, question.ID, answer.Thread.ID)

		payload, err := verifyPayload(ctx, alice.W, answer.ResponseSignature, invitee.Verkey())
		require.NoError(t, err)
		require.Equal(t, "Yes, it's me1000000", string(payload))
	})
}

func TestConnection_Delete(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	t.Run("disconnect revokes both sides", func(t *testing.T) {
		inviter, invitee := establish(t, alice, bob)

		require.NoError(t, invitee.Delete(ctx, bob))
		require.Equal(t, protocol.StateRevoked, invitee.State())

		require.NoError(t, inviter.UpdateState(ctx, alice))
		require.Equal(t, protocol.StateRevoked, inviter.State())

		require.NoError(t, invitee.Delete(ctx, bob))
		require.Equal(t, protocol.StateRevoked, invitee.State())
	})

	t.Run("send failure still revokes", func(t *testing.T) {
		_, invitee := establish(t, alice, bob)

		broken := network.NewAgent(t, "bob-broken")
		broken.T = &failingTransport{Transport: broken.Client}

		require.NoError(t, invitee.Delete(ctx, broken))
		require.Equal(t, protocol.StateRevoked, invitee.State())
	})
}

func TestConnection_Snapshot(t *testing.T) {
	network := agenttest.NewNetwork()
	alice := network.NewAgent(t, "alice")
	bob := network.NewAgent(t, "bob")
	ctx := context.Background()

	inviter, invitee := establish(t, alice, bob)

	raw, err := invitee.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, invitee.State(), restored.State())
	require.Equal(t, invitee.SourceID(), restored.SourceID())
	require.Equal(t, invitee.PwDID(), restored.PwDID())
	require.Equal(t, invitee.TheirVerkey(), restored.TheirVerkey())

	_, err = restored.SendMessage(ctx, bob, "from the restored copy", nil)
	require.NoError(t, err)
	require.Len(t, alice.Pending(t, inviter.Verkey()), 1)

	t.Run("malformed snapshots", func(t *testing.T) {
		for _, bad := range []string{
			`{}`,
			`{"version":"2.0","kind":"credential","data":{}}`,
			`{"version":"2.0","kind":"connection","data":{"state":"invited","role":"inviter"}}`,
			`{"version":"2.0","kind":"connection","data":{"state":"accepted","role":"nobody"}}`,
			`{"version":"2.0","kind":"connection","data":{"state":"accepted","role":"invitee"}}`,
		} {
			_, err := Deserialize(bad)
			require.ErrorIs(t, err, vcxerr.ErrMalformedSnapshot, bad)
		}
	})
}
