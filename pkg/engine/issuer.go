/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"errors"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/dispatcher"
	"github.com/topcoder-platform/mobilewallet/pkg/handle"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol"
	"github.com/topcoder-platform/mobilewallet/pkg/protocol/issuercredential"
)

// SchemaCreate publishes a schema under the institution DID, provisioning it when needed. The result is a
// HandleWithID.
func (e *Engine) SchemaCreate(token dispatcher.Token, sourceID, name, version string, attrs []byte,
	cb dispatcher.Callback) error {
	var names []string
	if err := json.Unmarshal(attrs, &names); err != nil {
		return vcxerr.Wrap(vcxerr.MalformedInput, err, "schema attributes must be a list of names")
	}

	if name == "" || version == "" || len(names) == 0 {
		return vcxerr.New(vcxerr.MalformedInput, "schema needs a name, a version and attributes")
	}

	return e.submit(token, func() (interface{}, error) {
		cfg, err := e.Provision(e.ctx)
		if err != nil {
			return nil, err
		}

		s, err := issuercredential.CreateSchema(e.ctx, e, sourceID, cfg.InstitutionDID, name, version, names)
		if err != nil {
			return nil, err
		}

		h, err := e.schemas.Allocate(s)
		if err != nil {
			return nil, err
		}

		return &HandleWithID{Handle: h, ID: s.ID()}, nil
	}, cb)
}

// SchemaGetID returns the ledger id of a schema.
func (e *Engine) SchemaGetID(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.schemas, h, func(s *issuercredential.Schema) (interface{}, error) {
		return s.ID(), nil
	}, cb)
}

// SchemaSerialize returns the schema snapshot.
func (e *Engine) SchemaSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.schemas, h, cb)
}

// SchemaDeserialize restores a schema object.
func (e *Engine) SchemaDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	s, err := issuercredential.DeserializeSchema(snapshot)

	return submitDeserialize(e, token, e.schemas, s, err, cb)
}

// SchemaRelease invalidates the handle.
func (e *Engine) SchemaRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.schemas, h, cb)
}

// CredentialDefCreate creates an issuer key and publishes a credential definition. The result is a HandleWithID.
func (e *Engine) CredentialDefCreate(token dispatcher.Token, sourceID, schemaID, tag string,
	cb dispatcher.Callback) error {
	if schemaID == "" {
		return vcxerr.New(vcxerr.MalformedInput, "schema id is required")
	}

	return e.submit(token, func() (interface{}, error) {
		cd, err := issuercredential.CreateCredentialDef(e.ctx, e, sourceID, schemaID, tag)
		if err != nil {
			return nil, err
		}

		h, err := e.credDefs.Allocate(cd)
		if err != nil {
			return nil, err
		}

		return &HandleWithID{Handle: h, ID: cd.ID()}, nil
	}, cb)
}

// CredentialDefGetID returns the ledger id of a credential definition.
func (e *Engine) CredentialDefGetID(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.credDefs, h, func(cd *issuercredential.CredentialDef) (interface{}, error) {
		return cd.ID(), nil
	}, cb)
}

// CredentialDefSerialize returns the credential definition snapshot.
func (e *Engine) CredentialDefSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.credDefs, h, cb)
}

// CredentialDefDeserialize restores a credential definition object.
func (e *Engine) CredentialDefDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	cd, err := issuercredential.DeserializeCredentialDef(snapshot)

	return submitDeserialize(e, token, e.credDefs, cd, err, cb)
}

// CredentialDefRelease invalidates the handle.
func (e *Engine) CredentialDefRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.credDefs, h, cb)
}

// IssuerCredentialCreate creates an issuer credential. The credential definition is the one behind credDefHandle
// or, when it is 0, the one credDefID resolves to on the ledger.
func (e *Engine) IssuerCredentialCreate(token dispatcher.Token, sourceID string, credDefHandle handle.Handle,
	credDefID string, attrs []byte, name string, cb dispatcher.Callback) error {
	values, err := issuercredential.ParseAttrs(attrs)
	if err != nil {
		return err
	}

	if credDefHandle != 0 {
		if err := e.credDefs.Exists(credDefHandle); err != nil {
			return err
		}
	} else if credDefID == "" {
		return vcxerr.New(vcxerr.MalformedInput, "a cred def handle or id is required")
	}

	return e.submit(token, func() (interface{}, error) {
		credDef, err := e.resolveCredDef(credDefHandle, credDefID)
		if err != nil {
			return nil, err
		}

		ic, err := issuercredential.New(sourceID, credDef, values, name)
		if err != nil {
			return nil, err
		}

		return allocate(e.issuerCredentials, ic)
	}, cb)
}

func (e *Engine) resolveCredDef(h handle.Handle, id string) (*ledger.CredDef, error) {
	if h != 0 {
		var credDef ledger.CredDef

		err := e.credDefs.With(h, func(cd *issuercredential.CredentialDef) error {
			credDef = cd.CredDef
			return nil
		})

		return &credDef, err
	}

	credDef, err := e.ledger.ResolveCredDef(e.ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, vcxerr.Wrap(vcxerr.NotFound, err, "cred def %s", id)
	}

	if err != nil {
		return nil, vcxerr.Collaborator(err, "resolve cred def %s", id)
	}

	return credDef, nil
}

// IssuerCredentialOfferMessage builds an offer message without sending it.
func (e *Engine) IssuerCredentialOfferMessage(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.issuerCredentials, h,
		func(ic *issuercredential.IssuerCredential) (interface{}, error) {
			offer, err := ic.OfferMessage()
			if err != nil {
				return nil, err
			}

			return messageJSON(offer)
		}, cb)
}

// IssuerCredentialSendOffer offers the credential over a connection.
func (e *Engine) IssuerCredentialSendOffer(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	if connHandle == 0 {
		return vcxerr.New(vcxerr.InvalidHandle, "connection handle is required")
	}

	return submitExchange(e, token, e.issuerCredentials, h, connHandle,
		func(ic *issuercredential.IssuerCredential, conn peer) (interface{}, error) {
			if err := ic.SendOffer(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return ic.State(), nil
		}, cb)
}

// IssuerCredentialSendCredential signs and sends the requested credential.
func (e *Engine) IssuerCredentialSendCredential(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.issuerCredentials, h, connHandle,
		func(ic *issuercredential.IssuerCredential, conn peer) (interface{}, error) {
			if err := ic.SendCredential(e.ctx, e, conn); err != nil {
				return nil, err
			}

			return ic.State(), nil
		}, cb)
}

// IssuerCredentialUpdateState polls the connection inbox in poll delivery mode.
func (e *Engine) IssuerCredentialUpdateState(token dispatcher.Token, h, connHandle handle.Handle,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.issuerCredentials, h, connHandle,
		func(ic *issuercredential.IssuerCredential, conn peer) (interface{}, error) {
			if !e.pushMode() {
				if err := ic.UpdateState(e.ctx, e, conn); err != nil {
					return nil, err
				}
			}

			return ic.State(), nil
		}, cb)
}

// IssuerCredentialUpdateStateWithMessage feeds one message to the issuer credential.
func (e *Engine) IssuerCredentialUpdateStateWithMessage(token dispatcher.Token, h handle.Handle, msg []byte,
	cb dispatcher.Callback) error {
	m, err := protocol.NewMessage(msg)
	if err != nil {
		return err
	}

	return submitExchange(e, token, e.issuerCredentials, h, 0,
		func(ic *issuercredential.IssuerCredential, conn peer) (interface{}, error) {
			if _, err := ic.UpdateStateWithMessage(e.ctx, e, conn, m); err != nil {
				return nil, err
			}

			return ic.State(), nil
		}, cb)
}

// IssuerCredentialGetRequest returns the credential request received from the holder.
func (e *Engine) IssuerCredentialGetRequest(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitWith(e, token, e.issuerCredentials, h,
		func(ic *issuercredential.IssuerCredential) (interface{}, error) {
			request, err := ic.RequestJSON()
			if err != nil {
				return nil, err
			}

			return rawJSON(request), nil
		}, cb)
}

// IssuerCredentialTerminate abandons the issuance, telling the holder once the offer was sent.
func (e *Engine) IssuerCredentialTerminate(token dispatcher.Token, h, connHandle handle.Handle, comment string,
	cb dispatcher.Callback) error {
	return submitExchange(e, token, e.issuerCredentials, h, connHandle,
		func(ic *issuercredential.IssuerCredential, conn peer) (interface{}, error) {
			if err := ic.Terminate(e.ctx, e, conn, comment); err != nil {
				return nil, err
			}

			return ic.State(), nil
		}, cb)
}

// IssuerCredentialGetState reports the state.
func (e *Engine) IssuerCredentialGetState(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitState(e, token, e.issuerCredentials, h, cb)
}

// IssuerCredentialProblemReport returns the last problem report, or an empty object.
func (e *Engine) IssuerCredentialProblemReport(token dispatcher.Token, h handle.Handle,
	cb dispatcher.Callback) error {
	return submitWith(e, token, e.issuerCredentials, h,
		func(ic *issuercredential.IssuerCredential) (interface{}, error) {
			return rawJSON(ic.ProblemReport()), nil
		}, cb)
}

// IssuerCredentialSerialize returns the issuer credential snapshot.
func (e *Engine) IssuerCredentialSerialize(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitSerialize(e, token, e.issuerCredentials, h, cb)
}

// IssuerCredentialDeserialize restores an issuer credential.
func (e *Engine) IssuerCredentialDeserialize(token dispatcher.Token, snapshot string, cb dispatcher.Callback) error {
	ic, err := issuercredential.Deserialize(snapshot)

	return submitDeserialize(e, token, e.issuerCredentials, ic, err, cb)
}

// IssuerCredentialRelease invalidates the handle.
func (e *Engine) IssuerCredentialRelease(token dispatcher.Token, h handle.Handle, cb dispatcher.Callback) error {
	return submitRelease(e, token, e.issuerCredentials, h, cb)
}
