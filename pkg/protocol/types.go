/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package protocol holds the message model and state codes shared by the connection, credential, proof and
// wallet backup protocols.
package protocol

import "strings"

// Prefix is the message family prefix of every supported protocol.
const Prefix = "https://didcomm.org/"

// Connection protocol messages.
const (
	ConnectionsPID         = Prefix + "connections/1.0"
	InvitationMsgType      = ConnectionsPID + "/invitation"
	ConnectionRequestType  = ConnectionsPID + "/request"
	ConnectionResponseType = ConnectionsPID + "/response"
	DisconnectMsgType      = ConnectionsPID + "/disconnect"

	NotificationPID       = Prefix + "notification/1.0"
	AckMsgType            = NotificationPID + "/ack"
	ProblemReportMsgType  = NotificationPID + "/problem-report"
	TrustPingPID          = Prefix + "trust_ping/1.0"
	PingMsgType           = TrustPingPID + "/ping"
	PingResponseMsgType   = TrustPingPID + "/ping_response"
	DiscoverFeaturesPID   = Prefix + "discover-features/1.0"
	QueryMsgType          = DiscoverFeaturesPID + "/query"
	DiscloseMsgType       = DiscoverFeaturesPID + "/disclose"
	QuestionAnswerPID     = Prefix + "questionanswer/1.0"
	QuestionMsgType       = QuestionAnswerPID + "/question"
	AnswerMsgType         = QuestionAnswerPID + "/answer"
	BasicMessagePID       = Prefix + "basicmessage/1.0"
	BasicMessageMsgType   = BasicMessagePID + "/message"
	SignatureSingleAttach = "https://didcomm.org/signature/1.0/ed25519Sha512_single"

	OutOfBandPID                  = Prefix + "out-of-band/1.0"
	HandshakeReuseMsgType         = OutOfBandPID + "/handshake-reuse"
	HandshakeReuseAcceptedMsgType = OutOfBandPID + "/handshake-reuse-accepted"
)

// Issue credential protocol messages.
const (
	IssueCredentialPID          = Prefix + "issue-credential/1.0"
	OfferCredentialMsgType      = IssueCredentialPID + "/offer-credential"
	RequestCredentialMsgType    = IssueCredentialPID + "/request-credential"
	IssueCredentialMsgType      = IssueCredentialPID + "/issue-credential"
	CredentialAckMsgType        = IssueCredentialPID + "/ack"
	CredentialProblemReportType = IssueCredentialPID + "/problem-report"
	CredentialPreviewMsgType    = IssueCredentialPID + "/credential-preview"
)

// Present proof protocol messages.
const (
	PresentProofPID               = Prefix + "present-proof/1.0"
	RequestPresentationMsgType    = PresentProofPID + "/request-presentation"
	PresentationMsgType           = PresentProofPID + "/presentation"
	ProposePresentationMsgType    = PresentProofPID + "/propose-presentation"
	PresentationAckMsgType        = PresentProofPID + "/ack"
	PresentationProblemReportType = PresentProofPID + "/problem-report"
	PresentationPreviewMsgType    = PresentProofPID + "/presentation-preview"
)

// Wallet backup protocol messages.
const (
	WalletBackupPID            = Prefix + "wallet-backup/1.0"
	BackupMsgType              = WalletBackupPID + "/backup"
	BackupAckMsgType           = WalletBackupPID + "/backup-ack"
	BackupProblemReportMsgType = WalletBackupPID + "/problem-report"
)

const (
	defaultProblemCodeRejection = "rejected"
	problemCodeExpiryMarker     = "expired"
	problemReportTypeSuffix     = "/problem-report"
)

// ProblemCodeRejected is the problem code sent when a party rejects an exchange.
const ProblemCodeRejected = defaultProblemCodeRejection

// IsProblemReport reports whether msgType is a problem report of any protocol.
func IsProblemReport(msgType string) bool {
	return strings.HasPrefix(msgType, Prefix) && strings.HasSuffix(msgType, problemReportTypeSuffix)
}

// IsExpiry reports whether a problem code signals an expired exchange.
func IsExpiry(code string) bool {
	return strings.Contains(strings.ToLower(code), problemCodeExpiryMarker)
}

// IsRejection reports whether a problem code signals an explicit rejection.
func IsRejection(code string) bool {
	return strings.EqualFold(code, defaultProblemCodeRejection)
}

// SupportedProtocols lists the protocol family ids this engine speaks.
func SupportedProtocols() []string {
	return []string{
		ConnectionsPID,
		NotificationPID,
		TrustPingPID,
		DiscoverFeaturesPID,
		QuestionAnswerPID,
		BasicMessagePID,
		OutOfBandPID,
		IssueCredentialPID,
		PresentProofPID,
		WalletBackupPID,
	}
}

// MatchProtocols returns the supported protocols matching a discover-features query. The query may end with
// '*' to match a prefix.
func MatchProtocols(query string) []string {
	var matched []string

	prefix, wildcard := strings.CutSuffix(query, "*")

	for _, pid := range SupportedProtocols() {
		if query == "" || pid == query || (wildcard && strings.HasPrefix(pid, prefix)) {
			matched = append(matched, pid)
		}
	}

	return matched
}

// Family returns the protocol family id of a message type.
func Family(msgType string) string {
	i := strings.LastIndex(msgType, "/")
	if i < 0 {
		return msgType
	}

	return msgType[:i]
}
