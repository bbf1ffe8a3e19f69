/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/topcoder-platform/mobilewallet/pkg/controller"
	"github.com/topcoder-platform/mobilewallet/pkg/controller/webnotifier"
	"github.com/topcoder-platform/mobilewallet/pkg/engine"
	"github.com/topcoder-platform/mobilewallet/pkg/ledger/httpledger"
	redisstore "github.com/topcoder-platform/mobilewallet/pkg/storage/redis"
	"github.com/topcoder-platform/mobilewallet/pkg/transport"
	httptransport "github.com/topcoder-platform/mobilewallet/pkg/transport/http"
	"github.com/topcoder-platform/mobilewallet/pkg/transport/ws"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "VCX_AGENT_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "VCX_AGENT_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// inbound host flag.
	agentInboundHostFlagName      = "inbound-host"
	agentInboundHostEnvKey        = "VCX_AGENT_INBOUND_HOST"
	agentInboundHostFlagShorthand = "i"
	agentInboundHostFlagUsage     = "Inbound Host Name:Port. Remote agents deliver messages to " + inboundPath +
		" (HTTP) and " + inboundWSPath + " (WebSocket) on this host. Defaults to the api host." +
		" Alternatively, this can be set with the following environment variable: " + agentInboundHostEnvKey

	// inbound host external flag.
	agentInboundHostExternalFlagName      = "inbound-host-external"
	agentInboundHostExternalEnvKey        = "VCX_AGENT_INBOUND_HOST_EXTERNAL"
	agentInboundHostExternalFlagShorthand = "e"
	agentInboundHostExternalFlagUsage     = "Service endpoint advertised in invitations, for example" +
		" https://agent.example.com" + inboundPath + ". Defaults to http://<inbound host>" + inboundPath + "." +
		" Alternatively, this can be set with the following environment variable: " + agentInboundHostExternalEnvKey

	// db type flag.
	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "VCX_AGENT_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use for the wallet and the inbox. " +
		"Supported options: mem, leveldb, redis. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	// db prefix flag.
	databasePrefixFlagName      = "database-prefix"
	databasePrefixEnvKey        = "VCX_AGENT_DATABASE_PREFIX"
	databasePrefixFlagShorthand = "u"
	databasePrefixFlagUsage     = "The leveldb directory, or the key prefix of the redis store. " +
		" Alternatively, this can be set with the following environment variable: " + databasePrefixEnvKey

	// db timeout flag.
	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutEnvKey    = "VCX_AGENT_DATABASE_TIMEOUT"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutDefault = "30"

	// redis url flag.
	redisURLFlagName      = "redis-url"
	redisURLEnvKey        = "VCX_AGENT_REDIS_URL"
	redisURLFlagShorthand = "r"
	redisURLFlagUsage     = "The redis URL, for example redis://localhost:6379/0. Needed with database type redis." +
		" Alternatively, this can be set with the following environment variable: " + redisURLEnvKey

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "VCX_AGENT_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + agentWebhookEnvKey

	// ledger url flag.
	ledgerURLFlagName      = "ledger-url"
	ledgerURLEnvKey        = "VCX_AGENT_LEDGER_URL"
	ledgerURLFlagShorthand = "l"
	ledgerURLFlagUsage     = "Base URL of the ledger HTTP endpoint. An in-memory ledger is used when not set." +
		" Alternatively, this can be set with the following environment variable: " + ledgerURLEnvKey

	// agency url flag.
	agencyURLFlagName  = "agency-url"
	agencyURLEnvKey    = "VCX_AGENT_AGENCY_URL"
	agencyURLFlagUsage = "Endpoint of the cloud agency. Requires the agency verkey." +
		" Alternatively, this can be set with the following environment variable: " + agencyURLEnvKey

	// agency verkey flag.
	agencyVerkeyFlagName  = "agency-verkey"
	agencyVerkeyEnvKey    = "VCX_AGENT_AGENCY_VERKEY"
	agencyVerkeyFlagUsage = "Verkey of the cloud agency." +
		" Alternatively, this can be set with the following environment variable: " + agencyVerkeyEnvKey

	// wallet key flag.
	walletKeyFlagName      = "wallet-key"
	walletKeyEnvKey        = "VCX_AGENT_WALLET_KEY" // nolint:gosec
	walletKeyFlagShorthand = "k"
	walletKeyFlagUsage     = "Passphrase of the agent wallet." +
		" Alternatively, this can be set with the following environment variable: " + walletKeyEnvKey

	// delivery mode flag.
	deliveryModeFlagName      = "delivery-mode"
	deliveryModeEnvKey        = "VCX_AGENT_DELIVERY_MODE"
	deliveryModeFlagShorthand = "m"
	deliveryModeFlagUsage     = "How inbound messages reach protocol objects. Supported options: poll, push." +
		" Default: poll." +
		" Alternatively, this can be set with the following environment variable: " + deliveryModeEnvKey

	// config file flag.
	configFileFlagName      = "config-file"
	configFileEnvKey        = "VCX_AGENT_CONFIG_FILE"
	configFileFlagShorthand = "f"
	configFileFlagUsage     = "Path to a YAML or JSON init config (agency_url, wallet_key, institution_name, ...)." +
		" Flags take precedence over the file." +
		" Alternatively, this can be set with the following environment variable: " + configFileEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "VCX_AGENT_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	// tls cert file.
	agentTLSCertFileFlagName      = "tls-cert-file"
	agentTLSCertFileEnvKey        = "TLS_CERT_FILE"
	agentTLSCertFileFlagShorthand = "c"
	agentTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	// tls key file.
	agentTLSKeyFileFlagName  = "tls-key-file"
	agentTLSKeyFileEnvKey    = "TLS_KEY_FILE"
	agentTLSKeyFileFlagUsage = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey

	inboundPath   = "/didcomm"
	inboundWSPath = "/didcomm/ws"
	wsPath        = "/ws"

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"
	databaseTypeRedisOption   = "redis"

	defaultLevelDBPath = "vcx-agent-db"
	provisionTimeout   = 30 * time.Second
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("vcx-agent/agent-rest")
)

type agentParameters struct {
	server                  server
	host, inboundHost       string
	inboundHostExternal     string
	token                   string
	tlsCertFile, tlsKeyFile string
	webhookURLs             []string
	ledgerURL               string
	configFile              string
	agencyURL, agencyVerkey string
	walletKey, deliveryMode string
	dbParam                 *dbParam
}

type dbParam struct {
	dbType   string
	prefix   string
	redisURL string
	timeout  uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(param *dbParam) (storage.Provider, error){
	databaseTypeMemOption: func(_ *dbParam) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(param *dbParam) (storage.Provider, error) { // nolint:unparam
		path := param.prefix
		if path == "" {
			path = defaultLevelDBPath
		}

		return leveldb.NewProvider(path), nil
	},
	databaseTypeRedisOption: func(param *dbParam) (storage.Provider, error) {
		if param.redisURL == "" {
			return nil, fmt.Errorf("%s is required with database type %s", redisURLFlagName, databaseTypeRedisOption)
		}

		redisOpts, err := redis.ParseURL(param.redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}

		client := redis.NewClient(redisOpts)

		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close() // nolint:errcheck

			return nil, fmt.Errorf("ping redis: %w", err)
		}

		var opts []redisstore.Option
		if param.prefix != "" {
			opts = append(opts, redisstore.WithPrefix(param.prefix))
		}

		return redisstore.NewProvider(client, opts...), nil
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start a vcx agent controller`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, agentLogLevelFlagName, agentLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			parameters, err := newAgentParameters(cmd)
			if err != nil {
				return err
			}

			parameters.server = server

			return startAgent(parameters)
		},
	}
}

func newAgentParameters(cmd *cobra.Command) (*agentParameters, error) { // nolint:funlen
	host, err := getUserSetVar(cmd, agentHostFlagName, agentHostEnvKey, false)
	if err != nil {
		return nil, err
	}

	token, err := getUserSetVar(cmd, agentTokenFlagName, agentTokenEnvKey, true)
	if err != nil {
		return nil, err
	}

	inboundHost, err := getUserSetVar(cmd, agentInboundHostFlagName, agentInboundHostEnvKey, true)
	if err != nil {
		return nil, err
	}

	inboundHostExternal, err := getUserSetVar(cmd, agentInboundHostExternalFlagName,
		agentInboundHostExternalEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam, err := getDBParam(cmd)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	ledgerURL, err := getUserSetVar(cmd, ledgerURLFlagName, ledgerURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	agencyURL, err := getUserSetVar(cmd, agencyURLFlagName, agencyURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	agencyVerkey, err := getUserSetVar(cmd, agencyVerkeyFlagName, agencyVerkeyEnvKey, true)
	if err != nil {
		return nil, err
	}

	walletKey, err := getUserSetVar(cmd, walletKeyFlagName, walletKeyEnvKey, true)
	if err != nil {
		return nil, err
	}

	deliveryMode, err := getUserSetVar(cmd, deliveryModeFlagName, deliveryModeEnvKey, true)
	if err != nil {
		return nil, err
	}

	configFile, err := getUserSetVar(cmd, configFileFlagName, configFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsCertFile, err := getUserSetVar(cmd, agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsKeyFile, err := getUserSetVar(cmd, agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	return &agentParameters{
		host:                host,
		token:               token,
		inboundHost:         inboundHost,
		inboundHostExternal: inboundHostExternal,
		dbParam:             dbParam,
		webhookURLs:         webhookURLs,
		ledgerURL:           ledgerURL,
		agencyURL:           agencyURL,
		agencyVerkey:        agencyVerkey,
		walletKey:           walletKey,
		deliveryMode:        deliveryMode,
		configFile:          configFile,
		tlsCertFile:         tlsCertFile,
		tlsKeyFile:          tlsKeyFile,
	}, nil
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.prefix, err = getUserSetVar(cmd, databasePrefixFlagName, databasePrefixEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam.redisURL, err = getUserSetVar(cmd, redisURLFlagName, redisURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	if t < 0 {
		return nil, fmt.Errorf("invalid db timeout %d", t)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)
	startCmd.Flags().StringP(agentInboundHostFlagName, agentInboundHostFlagShorthand, "", agentInboundHostFlagUsage)
	startCmd.Flags().StringP(agentInboundHostExternalFlagName, agentInboundHostExternalFlagShorthand, "",
		agentInboundHostExternalFlagUsage)
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)
	startCmd.Flags().StringP(databasePrefixFlagName, databasePrefixFlagShorthand, "", databasePrefixFlagUsage)
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)
	startCmd.Flags().StringP(redisURLFlagName, redisURLFlagShorthand, "", redisURLFlagUsage)
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{}, agentWebhookFlagUsage)
	startCmd.Flags().StringP(ledgerURLFlagName, ledgerURLFlagShorthand, "", ledgerURLFlagUsage)
	startCmd.Flags().StringP(agencyURLFlagName, "", "", agencyURLFlagUsage)
	startCmd.Flags().StringP(agencyVerkeyFlagName, "", "", agencyVerkeyFlagUsage)
	startCmd.Flags().StringP(walletKeyFlagName, walletKeyFlagShorthand, "", walletKeyFlagUsage)
	startCmd.Flags().StringP(deliveryModeFlagName, deliveryModeFlagShorthand, "", deliveryModeFlagUsage)
	startCmd.Flags().StringP(configFileFlagName, configFileFlagShorthand, "", configFileFlagUsage)
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)
	startCmd.Flags().StringP(agentTLSCertFileFlagName, agentTLSCertFileFlagShorthand, "", agentTLSCertFileFlagUsage)
	startCmd.Flags().StringP(agentTLSKeyFileFlagName, "", "", agentTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

// loadConfig merges the config file with the flags. Flags win.
func loadConfig(parameters *agentParameters) (*engine.Config, error) {
	cfg := &engine.Config{}

	if parameters.configFile != "" {
		raw, err := os.ReadFile(parameters.configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		cfg, err = engine.ParseConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", parameters.configFile, err)
		}
	}

	overrides := []struct {
		value  string
		target *string
	}{
		{parameters.agencyURL, &cfg.AgencyURL},
		{parameters.agencyVerkey, &cfg.AgencyVerkey},
		{parameters.walletKey, &cfg.WalletKey},
		{parameters.deliveryMode, (*string)(&cfg.DeliveryMode)},
	}

	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}

	cfg.ServiceEndpoint = serviceEndpoint(parameters, cfg.ServiceEndpoint)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func serviceEndpoint(parameters *agentParameters, fromFile string) string {
	switch {
	case parameters.inboundHostExternal != "":
		return parameters.inboundHostExternal
	case fromFile != "":
		return fromFile
	}

	scheme := "http"
	if parameters.tlsCertFile != "" && parameters.tlsKeyFile != "" {
		scheme = "https"
	}

	return scheme + "://" + inboundHostOf(parameters) + inboundPath
}

func inboundHostOf(parameters *agentParameters) string {
	if parameters.inboundHost != "" {
		return parameters.inboundHost
	}

	return parameters.host
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	notifier := webnotifier.New(wsPath, parameters.webhookURLs)

	e, inbox, err := createAgent(parameters, notifier)
	if err != nil {
		return err
	}

	defer e.Close()

	inboundRouter, err := inboundRoutes(mux.NewRouter(), inbox)
	if err != nil {
		return fmt.Errorf("failed to start vcx agent rest on port [%s], failed to create inbound transport : %w",
			parameters.host, err)
	}

	router := inboundRouter
	if parameters.inboundHost != "" && parameters.inboundHost != parameters.host {
		router = mux.NewRouter()

		go func() {
			logger.Infof("Starting inbound transport on host [%s]", parameters.inboundHost)

			if serveErr := parameters.server.ListenAndServe(parameters.inboundHost, inboundRouter,
				parameters.tlsCertFile, parameters.tlsKeyFile); serveErr != nil {
				logger.Errorf("inbound transport on [%s] stopped: %v", parameters.inboundHost, serveErr)
			}
		}()
	}

	api := router.NewRoute().Subrouter()

	if parameters.token != "" {
		api.Use(authorizationMiddleware(parameters.token))
	}

	// get all HTTP REST API handlers available for controller API
	for _, handler := range controller.GetRESTHandlers(e, controller.WithNotifier(notifier)) {
		api.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
		logger.Debugf("route %s", handler)
	}

	logger.Infof("Starting vcx agent rest on host [%s]", parameters.host)
	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start vcx agent rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func inboundRoutes(router *mux.Router, inbox *transport.Inbox) (*mux.Router, error) {
	httpInbound, err := httptransport.NewInboundHandler(inbox)
	if err != nil {
		return nil, err
	}

	wsInbound, err := ws.NewInboundHandler(inbox)
	if err != nil {
		return nil, err
	}

	router.Handle(inboundWSPath, wsInbound).Methods(http.MethodGet)
	router.Handle(inboundPath, httpInbound).Methods(http.MethodPost)

	return router, nil
}

func createAgent(parameters *agentParameters, notifier engine.Notifier) (*engine.Engine, *transport.Inbox, error) {
	cfg, err := loadConfig(parameters)
	if err != nil {
		return nil, nil, err
	}

	storePro, err := createStoreProviders(parameters)
	if err != nil {
		return nil, nil, err
	}

	inbox, err := transport.NewInbox(storePro)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open inbox: %w", err)
	}

	opts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithStoreProvider(storePro),
		engine.WithInbox(inbox),
		engine.WithNotifier(notifier),
	}

	if parameters.ledgerURL != "" {
		ledgerClient, ledgerErr := httpledger.New(parameters.ledgerURL)
		if ledgerErr != nil {
			return nil, nil, fmt.Errorf("failed to start vcx agent rest on port [%s], failed to create ledger : %w",
				parameters.host, ledgerErr)
		}

		opts = append(opts, engine.WithLedger(ledgerClient))
	}

	e, err := engine.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start vcx agent rest on port [%s], failed to initialize engine : %w",
			parameters.host, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	provisioned, err := e.Provision(ctx)
	if err != nil {
		e.Close()

		return nil, nil, fmt.Errorf("failed to provision agent: %w", err)
	}

	logger.Infof("agent %s provisioned with endpoint %s", provisioned.InstitutionDID, provisioned.ServiceEndpoint)

	return e, inbox, nil
}

func createStoreProviders(parameters *agentParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("key database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam)
			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s storage : %w", parameters.dbParam.dbType, err)
	}

	return store, nil
}
