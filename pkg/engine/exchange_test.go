/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/credential"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/disclosedproof"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

type exchangeFixture struct {
	issuer, holder *Engine
	ih, hi         handle.Handle
	credDefID      string
	credDefHandle  handle.Handle
}

func newExchangeFixture(t *testing.T) *exchangeFixture {
	t.Helper()

	n := newNetwork()
	f := &exchangeFixture{issuer: n.agent(t, "university", nil), holder: n.agent(t, "alice", nil)}
	f.ih, f.hi = connect(t, f.issuer, f.holder)

	schema := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.SchemaCreate(tok, "schema", "degree", "1.0", []byte(`["name","degree","age"]`), cb)
	}).(*HandleWithID)

	credDef := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.CredentialDefCreate(tok, "cred-def", schema.ID, "", cb)
	}).(*HandleWithID)

	f.credDefID = credDef.ID
	f.credDefHandle = credDef.Handle

	return f
}

// issue runs a full issuance and returns the holder's credential handle.
func (f *exchangeFixture) issue(t *testing.T) handle.Handle {
	t.Helper()

	ich := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialCreate(tok, "issue", f.credDefHandle, "",
			[]byte(`{"name":"Alice","degree":"Maths","age":"25"}`), "Degree", cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialSendOffer(tok, ich, f.ih, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	offers := messageIDs(t, mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialOffers(tok, f.hi, cb)
	}))
	require.Len(t, offers, 1)

	created := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialCreateWithMessageID(tok, "holder", f.hi, offers[0], cb)
	}).(*HandleWithMessage)

	offer := &credential.OfferCredential{}
	require.NoError(t, json.Unmarshal(created.Message, offer))
	require.Equal(t, offers[0], offer.ID)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialSendRequest(tok, created.Handle, f.hi, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialUpdateState(tok, ich, 0, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialSendCredential(tok, ich, 0, cb)
	})

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialUpdateState(tok, created.Handle, 0, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialUpdateState(tok, ich, 0, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	return created.Handle
}

func TestEngine_IssueCredential(t *testing.T) {
	f := newExchangeFixture(t)
	ch := f.issue(t)

	info := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialInfo(tok, ch, cb)
	}).(*credential.Info)
	require.Equal(t, f.credDefID, info.CredDefID)
	require.Equal(t, "Maths", info.Attrs["degree"])

	cred := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialGet(tok, ch, cb)
	}).(json.RawMessage)
	require.Contains(t, string(cred), "Maths")

	raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialSerialize(tok, ch, cb)
	}).(string)

	restored := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialDeserialize(tok, raw, cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialGetState(tok, restored, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	t.Run("delete", func(t *testing.T) {
		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return f.holder.CredentialDelete(tok, ch, cb)
		})

		_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return f.holder.CredentialDelete(tok, ch, cb)
		})
		require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))
	})
}

func TestEngine_CredentialReject(t *testing.T) {
	f := newExchangeFixture(t)

	ich := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialCreate(tok, "issue", 0, f.credDefID, []byte(`{"name":"Alice"}`), "", cb)
	}).(handle.Handle)

	offer := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialOfferMessage(tok, ich, cb)
	}).(json.RawMessage)

	ch := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialCreateWithOffer(tok, "holder", offer, cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialUpdateState(tok, ch, 0, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialSendRequest(tok, ch, 0, cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialReject(tok, ch, f.hi, "not interested", cb)
	})
	require.Equal(t, protocol.StateUnfulfilled, state)

	report := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialProblemReport(tok, ch, cb)
	}).(json.RawMessage)
	require.Contains(t, string(report), "not interested")

	reports := pendingOf(t, f.issuer, protocol.CredentialProblemReportType)
	require.Len(t, reports, 1)
}

func TestEngine_CredentialWithdrawnOffer(t *testing.T) {
	f := newExchangeFixture(t)

	ich := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialCreate(tok, "issue", 0, f.credDefID, []byte(`{"name":"Alice"}`), "", cb)
	}).(handle.Handle)

	raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialOfferMessage(tok, ich, cb)
	}).(json.RawMessage)

	offer := &credential.OfferCredential{}
	require.NoError(t, json.Unmarshal(raw, offer))

	ch := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialCreateWithOffer(tok, "holder", raw, cb)
	}).(handle.Handle)

	report := protocol.MustMessage(protocol.NewProblemReport(protocol.CredentialProblemReportType, offer.ID,
		protocol.ProblemCodeRejected, "offer withdrawn"))

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialUpdateStateWithMessage(tok, ch, report.JSON(), cb)
	})
	require.Equal(t, protocol.StateUnfulfilled, state)

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialReject(tok, ch, f.hi, "too late", cb)
	})
	require.Equal(t, vcxerr.ProtocolRejected, vcxerr.KindOf(err))

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialSendRequest(tok, ch, f.hi, cb)
	})
	require.Equal(t, vcxerr.ProtocolRejected, vcxerr.KindOf(err))
	require.Empty(t, pendingOf(t, f.issuer, protocol.CredentialProblemReportType))
}

func TestEngine_IssuerCredentialTerminate(t *testing.T) {
	f := newExchangeFixture(t)

	ich := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialCreate(tok, "issue", f.credDefHandle, "", []byte(`{"name":"Alice"}`), "", cb)
	}).(handle.Handle)

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialGetRequest(tok, ich, cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialSendOffer(tok, ich, f.ih, cb)
	})

	offers := messageIDs(t, mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialOffers(tok, f.hi, cb)
	}))
	require.Len(t, offers, 1)

	created := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialCreateWithMessageID(tok, "holder", f.hi, offers[0], cb)
	}).(*HandleWithMessage)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialSendRequest(tok, created.Handle, 0, cb)
	})

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialUpdateState(tok, ich, 0, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	request := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialGetRequest(tok, ich, cb)
	}).(json.RawMessage)
	require.Contains(t, string(request), f.credDefID)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialTerminate(tok, ich, 0, "out of stock", cb)
	})
	require.Equal(t, protocol.StateUnfulfilled, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialUpdateState(tok, created.Handle, 0, cb)
	})
	require.Equal(t, protocol.StateExpired, state)

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialReject(tok, created.Handle, 0, "whatever", cb)
	})
	require.Equal(t, vcxerr.ProtocolRejected, vcxerr.KindOf(err))

	_, err = call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.IssuerCredentialTerminate(tok, ich, 0, "again", cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))
}

func proofSelection(refs map[string]string) string {
	sel := map[string]map[string]interface{}{"attrs": {}}

	for ref, cred := range refs {
		sel["attrs"][ref] = map[string]interface{}{
			"credential": map[string]interface{}{"cred_info": map[string]string{"referent": cred}},
		}
	}

	raw, err := json.Marshal(sel)
	if err != nil {
		panic(err)
	}

	return string(raw)
}

func TestEngine_ProofExchange(t *testing.T) {
	f := newExchangeFixture(t)
	ch := f.issue(t)

	info := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialInfo(tok, ch, cb)
	}).(*credential.Info)

	verifier, prover := f.issuer, f.holder
	vp, pv := f.ih, f.hi

	attrs := `[{"name":"degree","restrictions":[{"cred_def_id":"` + f.credDefID + `"}]},{"name":"phone"}]`
	preds := `[{"name":"age","p_type":">=","p_value":18}]`

	ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofCreate(tok, "verify", attrs, preds, "", "kyc", cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSendRequest(tok, ph, vp, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	requests := messageIDs(t, mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofRequests(tok, pv, cb)
	}))
	require.Len(t, requests, 1)

	created := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofCreateWithMessageID(tok, "disclose", pv, requests[0], cb)
	}).(*HandleWithMessage)
	dh := created.Handle

	found := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofRetrieveCredentials(tok, dh, cb)
	}).(*disclosedproof.RetrievedCredentials)
	require.Len(t, found.Attrs["attribute_0"], 1)
	require.Equal(t, info.Referent, found.Attrs["attribute_0"][0].CredInfo.Referent)
	require.Empty(t, found.Attrs["attribute_1"])

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSendProof(tok, dh, 0, cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	selected := proofSelection(map[string]string{"attribute_0": info.Referent, "predicate_0": info.Referent})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofGenerate(tok, dh, selected, `{"attribute_1":"555-0100"}`, cb)
	})

	msg := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofMessage(tok, dh, cb)
	}).(json.RawMessage)
	require.Contains(t, string(msg), protocol.PresentationMsgType)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSendProof(tok, dh, 0, cb)
	})

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofUpdateState(tok, ph, 0, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	result := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofGet(tok, ph, cb)
	}).(*ProofResult)
	require.Equal(t, protocol.ProofValidated, result.ProofState)
	require.Contains(t, string(result.Presentation), "555-0100")

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofUpdateState(tok, dh, 0, cb)
	})
	require.Equal(t, protocol.StateAccepted, state)
}

func TestEngine_DisclosedProofDecline(t *testing.T) {
	f := newExchangeFixture(t)
	verifier, prover := f.issuer, f.holder

	ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofCreate(tok, "verify", `[{"name":"name"}]`, "", "", "kyc", cb)
	}).(handle.Handle)

	request := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofRequestMessage(tok, ph, cb)
	}).(json.RawMessage)

	dh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofCreateWithRequest(tok, "disclose", request, cb)
	}).(handle.Handle)

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofDecline(tok, dh, f.hi, "", "", cb)
	})

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofDecline(tok, dh, 0, "not today", "", cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofDecline(tok, dh, f.hi, "", `{"attributes":[{"name":"degree"}]}`, cb)
	})

	raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSerialize(tok, dh, cb)
	}).(string)
	require.Contains(t, raw, disclosedproof.StateNameProposalSent)
}

// pendingOf returns the payloads of msgType waiting in any inbox of e.
func pendingOf(t *testing.T, e *Engine, msgType string) []protocol.Message {
	t.Helper()

	res := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return e.MessagesDownload(tok, transport.StatusReceived, "", "", cb)
	}).([]*ConnectionMessages)

	var out []protocol.Message

	for _, conn := range res {
		for _, m := range conn.Msgs {
			if m.Type == msgType {
				out = append(out, m.Payload)
			}
		}
	}

	return out
}

func threadOf(t *testing.T, raw json.RawMessage) string {
	t.Helper()

	msg, err := protocol.NewMessage(raw)
	require.NoError(t, err)

	return msg.ThreadID()
}

func TestEngine_ProofUpdateStateWithMessage(t *testing.T) {
	f := newExchangeFixture(t)
	ch := f.issue(t)

	info := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialInfo(tok, ch, cb)
	}).(*credential.Info)

	verifier, prover := f.issuer, f.holder

	ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofCreate(tok, "verify", `[{"name":"degree"}]`, "", "", "kyc", cb)
	}).(handle.Handle)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSendRequest(tok, ph, f.ih, cb)
	})

	requests := messageIDs(t, mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofRequests(tok, f.hi, cb)
	}))
	require.Len(t, requests, 1)

	dh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofCreateWithMessageID(tok, "disclose", f.hi, requests[0], cb)
	}).(*HandleWithMessage).Handle

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofGenerate(tok, dh, proofSelection(map[string]string{"attribute_0": info.Referent}),
			"", cb)
	})

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSendProof(tok, dh, 0, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	presentations := pendingOf(t, verifier, protocol.PresentationMsgType)
	require.Len(t, presentations, 1)

	const callers = 8

	done := make(chan *dispatcher.Completion, callers)

	for i := 0; i < callers; i++ {
		require.NoError(t, verifier.ProofUpdateStateWithMessage(dispatcher.Token(atomic.AddUint32(&tokens, 1)), ph,
			presentations[0].JSON(), func(c *dispatcher.Completion) { done <- c }))
	}

	for i := 0; i < callers; i++ {
		select {
		case c := <-done:
			require.NoError(t, c.Err)
			require.Equal(t, protocol.StateAccepted, c.Result)
		case <-time.After(10 * time.Second):
			require.FailNow(t, "update did not complete")
		}
	}

	result := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofGet(tok, ph, cb)
	}).(*ProofResult)
	require.Equal(t, protocol.ProofValidated, result.ProofState)

	acks := pendingOf(t, prover, protocol.PresentationAckMsgType)
	require.Len(t, acks, 1)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofUpdateStateWithMessage(tok, dh, acks[0].JSON(), cb)
	})
	require.Equal(t, protocol.StateAccepted, state)

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofUpdateStateWithMessage(tok, dh, []byte(`{"@id":"x"}`), cb)
	})
}

func TestEngine_ProofNonceSignature(t *testing.T) {
	f := newExchangeFixture(t)
	ch := f.issue(t)

	info := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.holder.CredentialInfo(tok, ch, cb)
	}).(*credential.Info)

	verifier, prover := f.issuer, f.holder
	selected := proofSelection(map[string]string{"attribute_0": info.Referent})

	request := func(t *testing.T) (handle.Handle, handle.Handle) {
		t.Helper()

		ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofCreate(tok, "verify", `[{"name":"degree"}]`, "", "", "kyc", cb)
		}).(handle.Handle)

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofSendRequest(tok, ph, f.ih, cb)
		})

		req := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofRequestMessage(tok, ph, cb)
		}).(json.RawMessage)

		dh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return prover.DisclosedProofCreateWithRequest(tok, "unbound", req, cb)
		}).(handle.Handle)

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return prover.DisclosedProofGenerate(tok, dh, selected, "", cb)
		})

		return ph, dh
	}

	verify := func(t *testing.T, ph handle.Handle, msg []byte) protocol.ProofState {
		t.Helper()

		state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofUpdateStateWithMessage(tok, ph, msg, cb)
		})
		require.Equal(t, protocol.StateAccepted, state)

		return mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofGet(tok, ph, cb)
		}).(*ProofResult).ProofState
	}

	t.Run("unsigned nonce", func(t *testing.T) {
		ph, dh := request(t)

		msg := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return prover.DisclosedProofMessage(tok, dh, cb)
		}).(json.RawMessage)

		require.Equal(t, protocol.ProofInvalid, verify(t, ph, msg))
	})

	t.Run("signed with the key of another connection", func(t *testing.T) {
		_, other := connect(t, verifier, prover)
		ph, dh := request(t)

		mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return prover.DisclosedProofSendProof(tok, dh, other, cb)
		})

		req := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
			return verifier.ProofRequestMessage(tok, ph, cb)
		}).(json.RawMessage)

		var sent protocol.Message

		for _, p := range pendingOf(t, verifier, protocol.PresentationMsgType) {
			if p.ThreadID() == threadOf(t, req) {
				sent = p
			}
		}

		require.NotNil(t, sent)
		require.Equal(t, protocol.ProofInvalid, verify(t, ph, sent.JSON()))
	})
}

func TestEngine_ProofProposal(t *testing.T) {
	f := newExchangeFixture(t)
	verifier, prover := f.issuer, f.holder

	dh := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofCreateProposal(tok, "propose",
			`{"attributes":[{"name":"degree","cred_def_id":"`+f.credDefID+`"}]}`, "my degree", cb)
	}).(handle.Handle)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofSendProposal(tok, dh, f.hi, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	proposals := pendingOf(t, verifier, protocol.ProposePresentationMsgType)
	require.Len(t, proposals, 1)

	rejected(t, vcxerr.MalformedInput, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofCreateWithProposal(tok, "verify", []byte(`{"@type":"x"}`), "", cb)
	})

	ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofCreateWithProposal(tok, "verify", proposals[0].JSON(), "degree check", cb)
	}).(handle.Handle)

	proposal := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofGetProposal(tok, ph, cb)
	}).(json.RawMessage)
	require.Contains(t, string(proposal), f.credDefID)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofGetState(tok, ph, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSendRequest(tok, ph, 0, cb)
	})
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	rejected(t, vcxerr.InvalidHandle, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSetConnection(tok, ph, 0, cb)
	})

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSetConnection(tok, ph, f.ih, cb)
	})

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return verifier.ProofSendRequest(tok, ph, 0, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)

	state = mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return prover.DisclosedProofUpdateState(tok, dh, 0, cb)
	})
	require.Equal(t, protocol.StateRequestReceived, state)
}

func TestEngine_ExchangeFollowsConnection(t *testing.T) {
	f := newExchangeFixture(t)

	ph := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ProofCreate(tok, "verify", `[{"name":"degree"}]`, "", "", "kyc", cb)
	}).(handle.Handle)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ProofSendRequest(tok, ph, f.ih, cb)
	})

	raw := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ProofSerialize(tok, ph, cb)
	}).(string)
	require.Contains(t, raw, "connection_did")
	require.NotContains(t, raw, "connection_handle")

	snapshot := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ConnectionSerialize(tok, f.ih, cb)
	}).(string)

	mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ConnectionRelease(tok, f.ih, cb)
	})

	_, err := call(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ProofUpdateState(tok, ph, 0, cb)
	})
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))

	restored := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ConnectionDeserialize(tok, snapshot, cb)
	}).(handle.Handle)
	require.NotEqual(t, f.ih, restored)

	state := mustCall(t, func(tok dispatcher.Token, cb dispatcher.Callback) error {
		return f.issuer.ProofUpdateState(tok, ph, 0, cb)
	})
	require.Equal(t, protocol.StateOfferSent, state)
}
