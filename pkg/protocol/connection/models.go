/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
)

const (
	didDocContext              = "https://w3id.org/did/v1"
	ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	indyAgentServiceType       = "IndyAgent"
)

// Invitation is the connection invitation published by the inviter.
type Invitation struct {
	protocol.Header `json:",squash"`
	Label           string   `json:"label,omitempty"`
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ProfileURL      string   `json:"profileUrl,omitempty"`
	Goal            string   `json:"goal,omitempty"`
	GoalCode        string   `json:"goal_code,omitempty"`
}

// AbbreviatedInvitation is the compact invitation form used for QR codes.
type AbbreviatedInvitation struct {
	ID       string   `json:"id"`
	Label    string   `json:"l,omitempty"`
	Keys     []string `json:"k"`
	Endpoint string   `json:"e"`
	Routing  []string `json:"r,omitempty"`
	Goal     string   `json:"g,omitempty"`
}

// PublicKey is a DID document public key.
type PublicKey struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Controller      string `json:"controller"`
	PublicKeyBase58 string `json:"publicKeyBase58"`
}

// Service is a DID document service entry.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	RecipientKeys   []string `json:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

// DIDDoc is the pairwise DID document exchanged in requests and responses.
type DIDDoc struct {
	Context   string      `json:"@context"`
	ID        string      `json:"id"`
	PublicKey []PublicKey `json:"publicKey"`
	Service   []Service   `json:"service"`
}

func newDIDDoc(did, verkey, endpoint string) *DIDDoc {
	return &DIDDoc{
		Context: didDocContext,
		ID:      did,
		PublicKey: []PublicKey{{
			ID:              did + "#1",
			Type:            ed25519VerificationKey2018,
			Controller:      did,
			PublicKeyBase58: verkey,
		}},
		Service: []Service{{
			ID:              did + ";indy",
			Type:            indyAgentServiceType,
			RecipientKeys:   []string{verkey},
			RoutingKeys:     []string{},
			ServiceEndpoint: endpoint,
		}},
	}
}

// Info is the DID and DID document of one side of the connection.
type Info struct {
	DID    string  `json:"DID"`
	DIDDoc *DIDDoc `json:"DIDDoc"`
}

// Request is the connection request sent by the invitee.
type Request struct {
	protocol.Header `json:",squash"`
	Label           string `json:"label"`
	Connection      *Info  `json:"connection"`
}

// SignatureDecorator is the ed25519 single signature decorator.
type SignatureDecorator struct {
	Type       string `json:"@type"`
	Signature  string `json:"signature"`
	SignedData string `json:"sig_data"`
	Signer     string `json:"signer"`
}

// Response is the signed connection response sent by the inviter.
type Response struct {
	protocol.Header     `json:",squash"`
	ConnectionSignature *SignatureDecorator `json:"connection~sig"`
}

// Disconnect ends an accepted connection.
type Disconnect struct {
	protocol.Header `json:",squash"`
	Comment         string `json:"comment,omitempty"`
}

// Ping is a trust ping.
type Ping struct {
	protocol.Header   `json:",squash"`
	Comment           string `json:"comment,omitempty"`
	ResponseRequested bool   `json:"response_requested"`
}

// HandshakeReuse tells the inviter that an existing connection answers its out-of-band invitation. The parent
// thread is the invitation id.
type HandshakeReuse struct {
	protocol.Header `json:",squash"`
}

// PingResponse answers a trust ping.
type PingResponse struct {
	protocol.Header `json:",squash"`
	Comment         string `json:"comment,omitempty"`
}

// Query is a discover features query.
type Query struct {
	protocol.Header `json:",squash"`
	Query           string `json:"query"`
	Comment         string `json:"comment,omitempty"`
}

// ProtocolDescriptor is one disclosed protocol.
type ProtocolDescriptor struct {
	PID string `json:"pid"`
}

// Disclose answers a discover features query.
type Disclose struct {
	protocol.Header `json:",squash"`
	Protocols       []ProtocolDescriptor `json:"protocols"`
}

// BasicMessage is a free text message.
type BasicMessage struct {
	protocol.Header `json:",squash"`
	Content         string       `json:"content"`
	SentTime        string       `json:"sent_time"`
	Localization    Localization `json:"~l10n"`
	MsgType         string       `json:"msg_type,omitempty"`
	MsgTitle        string       `json:"msg_title,omitempty"`
}

// Localization is the ~l10n decorator.
type Localization struct {
	Locale string `json:"locale"`
}

// ValidResponse is one allowed answer to a question.
type ValidResponse struct {
	Text string `json:"text"`
}

// Timing is the ~timing decorator.
type Timing struct {
	ExpiresTime string `json:"expires_time,omitempty"`
}

// Question is a question of the question-answer protocol.
type Question struct {
	protocol.Header   `json:",squash"`
	QuestionText      string          `json:"question_text"`
	QuestionDetail    string          `json:"question_detail,omitempty"`
	Nonce             string          `json:"nonce"`
	SignatureRequired bool            `json:"signature_required"`
	ValidResponses    []ValidResponse `json:"valid_responses"`
	Timing            *Timing         `json:"~timing,omitempty"`
}

// Answer answers a question, signing the response text and the question nonce.
type Answer struct {
	protocol.Header   `json:",squash"`
	Response          string              `json:"response"`
	ResponseSignature *SignatureDecorator `json:"response~sig,omitempty"`
}

// SendMessageOptions are the options of a basic message.
type SendMessageOptions struct {
	MsgType  string `json:"msg_type"`
	MsgTitle string `json:"msg_title"`
	RefMsgID string `json:"ref_msg_id"`
}

// ConnectOptions are the options of connect.
type ConnectOptions struct {
	ConnectionType string `json:"connection_type"`
	Phone          string `json:"phone"`
	UsePublicDID   bool   `json:"use_public_did"`
}

// PairwiseInfo is one side of the connection as reported by Info.
type PairwiseInfo struct {
	DID             string   `json:"did"`
	RecipientKeys   []string `json:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	Protocols       []string `json:"protocols,omitempty"`
}

// Summary is the connection info document.
type Summary struct {
	Current PairwiseInfo  `json:"current"`
	Remote  *PairwiseInfo `json:"remote,omitempty"`
}
