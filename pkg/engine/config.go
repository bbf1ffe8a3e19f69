/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/topcoder-platform/mobilewallet/pkg/common/vcxerr"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
)

// DeliveryMode tells how inbound messages reach protocol objects.
type DeliveryMode string

const (
	// DeliveryPoll makes update_state poll the inbox of the object's connection.
	DeliveryPoll DeliveryMode = "poll"
	// DeliveryPush leaves update_state reporting the current state. Arrivals are announced to the notifier and the
	// caller feeds them through update_state_with_message.
	DeliveryPush DeliveryMode = "push"
)

const defaultLabel = "vcx-agent"

// Config is the agent init configuration.
type Config struct {
	AgencyURL          string       `json:"agency_url,omitempty" yaml:"agency_url,omitempty"`
	AgencyDID          string       `json:"agency_did,omitempty" yaml:"agency_did,omitempty"`
	AgencyVerkey       string       `json:"agency_verkey,omitempty" yaml:"agency_verkey,omitempty"`
	WalletName         string       `json:"wallet_name,omitempty" yaml:"wallet_name,omitempty"`
	WalletKey          string       `json:"wallet_key,omitempty" yaml:"wallet_key,omitempty"`
	InstitutionName    string       `json:"institution_name,omitempty" yaml:"institution_name,omitempty"`
	InstitutionLogoURL string       `json:"institution_logo_url,omitempty" yaml:"institution_logo_url,omitempty"`
	InstitutionDID     string       `json:"institution_did,omitempty" yaml:"institution_did,omitempty"`
	InstitutionVerkey  string       `json:"institution_verkey,omitempty" yaml:"institution_verkey,omitempty"`
	ProtocolVersion    string       `json:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`
	GenesisPath        string       `json:"genesis_path,omitempty" yaml:"genesis_path,omitempty"`
	DeliveryMode       DeliveryMode `json:"delivery_mode,omitempty" yaml:"delivery_mode,omitempty"`
	ServiceEndpoint    string       `json:"service_endpoint,omitempty" yaml:"service_endpoint,omitempty"`
}

// ParseConfig decodes a JSON or YAML init configuration.
func ParseConfig(raw []byte) (*Config, error) {
	cfg := &Config{}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, vcxerr.New(vcxerr.MalformedInput, "empty config")
	}

	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, cfg)
	} else {
		err = yaml.Unmarshal(trimmed, cfg)
	}

	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.MalformedInput, err, "invalid config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the enumerated settings and fills defaults.
func (c *Config) Validate() error {
	switch c.DeliveryMode {
	case "":
		c.DeliveryMode = DeliveryPoll
	case DeliveryPoll, DeliveryPush:
	default:
		return vcxerr.New(vcxerr.MalformedInput, "unknown delivery mode %q", c.DeliveryMode)
	}

	if c.ProtocolVersion != "" && c.ProtocolVersion != "1.0" && c.ProtocolVersion != "2.0" {
		return vcxerr.New(vcxerr.MalformedInput, "unsupported protocol version %q", c.ProtocolVersion)
	}

	if (c.AgencyURL == "") != (c.AgencyVerkey == "") {
		return vcxerr.New(vcxerr.MalformedInput, "agency_url and agency_verkey must be set together")
	}

	return nil
}

// JSON returns the configuration in its JSON form.
func (c *Config) JSON() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	return string(raw), nil
}

func (c *Config) agency() *transport.Destination {
	if c.AgencyURL == "" || c.AgencyVerkey == "" {
		return nil
	}

	return &transport.Destination{RecipientKeys: []string{c.AgencyVerkey}, ServiceEndpoint: c.AgencyURL}
}

func (c *Config) label() string {
	if c.InstitutionName != "" {
		return c.InstitutionName
	}

	return defaultLabel
}
