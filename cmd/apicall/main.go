package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loykin/apicall"
	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/credential"
	"github.com/loykin/apicall/internal/httpc"
	"github.com/loykin/apicall/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "apicall <endpoint> <input_file> <method> [api_name] [output_path]",
		Short:         "Send a file payload to an API with retries and save the response",
		Args:          rangeArgs(3, 5),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, v, args)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{usage: c.UsageString(), msg: err.Error()}
	})

	// Environment variables support: APICALL_CONFIG, APICALL_RETRIES, ...
	v.SetEnvPrefix("APICALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a config yaml")
	pf.String("credentials", "", "credential file of key:value lines (default ~/.api_credentials)")
	pf.String("log-level", "", "log level: error, warn, info or debug")
	pf.String("log-format", "", "log format: text or json")
	pf.String("store", "", "sqlite file that records every interaction")
	pf.Int("retries", 0, "maximum attempts per call (default 3)")
	pf.Duration("delay", 0, "wait after the first failed attempt (default 1s)")
	pf.Duration("attempt-timeout", 0, "timeout for a single attempt (0 = none)")
	pf.IntSlice("retry-status", nil, "non-200 statuses to retry, e.g. 429,503")

	f := root.Flags()
	f.String("format", "", "response format: json, xml, plain or binary")
	f.StringToString("header", nil, "extra request header key=value (repeatable)")
	f.StringToString("query", nil, "query parameter key=value (repeatable)")
	f.String("auth", "", "authentication kind: bearer, apikey or none")

	bindFlags(v, pf, "config", "credentials", "log-level", "log-format", "store",
		"retries", "delay", "attempt-timeout", "retry-status")
	bindFlags(v, f, "format", "header", "query", "auth")

	root.AddCommand(newPromptCmd(v))
	root.AddCommand(newHistoryCmd(v))
	return root
}

// bindFlags binds each flag to the viper key with dashes turned into underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name))
	}
}

// setup loads the config document, applies flag and env overrides and
// installs the logger on the command's stdout.
func setup(cmd *cobra.Command, v *viper.Viper) (*ConfigDoc, *common.Logger, error) {
	doc, err := loadSettings(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := doc.SetupLogging(cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}
	return doc, logger, nil
}

// buildOrchestrator wires credentials, transport, retry policy and the
// optional history store. The returned cleanup closes the store.
func buildOrchestrator(ctx context.Context, doc *ConfigDoc, logger *common.Logger) (*apicall.Orchestrator, func(), error) {
	h, err := doc.Client.HTTPClient()
	if err != nil {
		return nil, nil, err
	}
	policy, err := doc.Retry.Policy()
	if err != nil {
		return nil, nil, err
	}

	creds, err := apicall.LoadCredentials(doc.Credentials.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	var tokens apicall.TokenResolver = creds
	if len(doc.OAuth2) > 0 {
		r, err := credential.NewOAuth2Resolver(doc.OAuth2, creds)
		if err != nil {
			return nil, nil, err
		}
		r.HTTPClient = h.New().GetClient()
		r.Logger = logger
		tokens = r
	}

	o := apicall.New(tokens, logger)
	o.Transport = httpc.NewTransport(h, logger)
	o.Policy = policy

	cleanup := func() {}
	if sc := doc.Store.ToStoreConfig(); sc != nil {
		st, err := apicall.OpenStore(ctx, *sc)
		if err != nil {
			return nil, nil, err
		}
		o.Recorder = st
		cleanup = func() { _ = st.Close() }
	}
	return o, cleanup, nil
}

func runCall(cmd *cobra.Command, v *viper.Viper, args []string) error {
	doc, logger, err := setup(cmd, v)
	if err != nil {
		return err
	}
	format, err := apicall.ParseFormat(doc.Output.Format)
	if err != nil {
		return err
	}
	headers, err := stringMap(v.Get("header"))
	if err != nil {
		return err
	}
	params, err := stringMap(v.Get("query"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	o, cleanup, err := buildOrchestrator(ctx, doc, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	call := apicall.Call{
		Endpoint:      args[0],
		InputPath:     util.ExpandHome(args[1]),
		Method:        strings.ToUpper(strings.TrimSpace(args[2])),
		Headers:       headers,
		Params:        params,
		Format:        format,
		OutputBase:    doc.Output.Base,
		AuthKind:      strings.TrimSpace(v.GetString("auth")),
		RetryStatuses: doc.Retry.Statuses,
	}
	if len(args) > 3 {
		call.APIName = args[3]
	}
	if len(args) > 4 {
		call.OutputBase = args[4]
	}

	if _, err := o.Run(ctx, call); err != nil {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd(viper.New())
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		exitHandler.Fail(os.Stderr, err)
	}
}
