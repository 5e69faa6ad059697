package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/apicall"
	"github.com/loykin/apicall/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadSettings reads the optional config file and lays flags and APICALL_*
// variables on top of it. Only values explicitly set take precedence.
func loadSettings(v *viper.Viper) (*ConfigDoc, error) {
	doc := &ConfigDoc{}
	if p, ok := util.TrimEmptyCheck(v.GetString("config")); ok {
		if err := doc.Load(p); err != nil {
			return nil, err
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setString("log_level", &doc.Logging.Level)
	setString("log_format", &doc.Logging.Format)
	setString("credentials", &doc.Credentials.Path)
	setString("format", &doc.Output.Format)
	setString("delay", &doc.Retry.InitialDelay)
	setString("attempt_timeout", &doc.Retry.AttemptTimeout)
	setString("key_env", &doc.Prompt.KeyEnv)
	setString("key_param", &doc.Prompt.KeyParam)
	setString("text_path", &doc.Prompt.TextPath)

	if v.IsSet("retries") {
		doc.Retry.MaxAttempts = v.GetInt("retries")
	}
	if v.IsSet("retry_status") {
		statuses, err := intList(v.Get("retry_status"))
		if err != nil {
			return nil, fmt.Errorf("invalid retry status list: %w", err)
		}
		doc.Retry.Statuses = statuses
	}
	if v.IsSet("store") {
		doc.Store = StoreConfig{
			Type:        apicall.DriverSqlite,
			SQLite:      SQLiteStoreConfig{Path: v.GetString("store")},
			TablePrefix: doc.Store.TablePrefix,
		}
	}
	return doc, nil
}

// Policy converts the retry section, starting from the default policy.
func (r RetryConfig) Policy() (apicall.RetryPolicy, error) {
	p := apicall.DefaultRetryPolicy()
	if r.MaxAttempts != 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.Multiplier != 0 {
		p.Multiplier = r.Multiplier
	}
	if d, ok := util.TrimEmptyCheck(r.InitialDelay); ok {
		delay, err := time.ParseDuration(d)
		if err != nil {
			return p, fmt.Errorf("invalid retry delay %q: %w", r.InitialDelay, err)
		}
		p.InitialDelay = delay
	}
	if d, ok := util.TrimEmptyCheck(r.AttemptTimeout); ok {
		timeout, err := time.ParseDuration(d)
		if err != nil {
			return p, fmt.Errorf("invalid attempt timeout %q: %w", r.AttemptTimeout, err)
		}
		p.AttemptTimeout = timeout
	}
	return p, p.Validate()
}

// rangeArgs is cobra.RangeArgs returning a usageError.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= lo && len(args) <= hi {
			return nil
		}
		msg := fmt.Sprintf("accepts between %d and %d arg(s), received %d", lo, hi, len(args))
		if lo == hi {
			msg = fmt.Sprintf("accepts %d arg(s), received %d", lo, len(args))
		}
		return &usageError{usage: cmd.UsageString(), msg: msg}
	}
}

// stringMap accepts a bound StringToString flag value or a "k=v,k2=v2" string
// from the environment.
func stringMap(raw interface{}) (map[string]string, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = fmt.Sprint(val)
		}
		return out, nil
	case string:
		out := map[string]string{}
		for _, pair := range strings.Split(t, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			k, val, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("%q must be formatted as key=value", pair)
			}
			out[strings.TrimSpace(k)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported key=value list %T", raw)
	}
}

// intList accepts a bound IntSlice flag value or a comma separated string.
func intList(raw interface{}) ([]int, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case []int:
		return t, nil
	case int:
		return []int{t}, nil
	case []interface{}:
		out := make([]int, 0, len(t))
		for _, item := range t {
			n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(item)))
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case string:
		s := strings.Trim(strings.TrimSpace(t), "[]")
		var out []int
		for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported status list %T", raw)
	}
}
