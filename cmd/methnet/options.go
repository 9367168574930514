package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/methnet/internal/eutils"
	"github.com/pdiddy/methnet/internal/methnet"
	"github.com/pdiddy/methnet/internal/secrets"
	"github.com/pdiddy/methnet/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "methnet/0.1"
)

// bindFlags binds viper keys to the flags returned by lookup.
func bindFlags(lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// addQueryFlags registers the flags that name a dataset.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "PubMed query (e.g. \"fmri AND language\")")
	cmd.Flags().StringSlice("methods", nil, "method keywords to count, comma-separated (e.g. spm,afni,fsl)")
	cmd.Flags().String("data-id", "", "dataset identifier; an existing dataset with this id is reused")
}

func parsePolicy(s string) (types.FailurePolicy, error) {
	switch p := types.FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", types.PolicyAbort:
		return types.PolicyAbort, nil
	case types.PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("invalid --on-error %q (want abort or skip)", s)
	}
}

// dataConfig assembles acquisition settings from flags, config, env and
// .secrets/.
func dataConfig() (types.DataConfig, error) {
	policy, err := parsePolicy(viper.GetString("on_error"))
	if err != nil {
		return types.DataConfig{}, err
	}
	timeout := viper.GetDuration("ncbi.timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return types.DataConfig{
		NCBI: types.NCBIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    timeout,
				UserAgent:  defaultUserAgent,
				MaxRetries: viper.GetInt("ncbi.max_retries"),
			},
			APIKey:     secrets.Lookup(loadedSecrets, secrets.NCBIAPIKey, viper.GetString("ncbi.api_key")),
			Email:      secrets.Lookup(loadedSecrets, secrets.NCBIEmail, viper.GetString("ncbi.email")),
			Tool:       viper.GetString("ncbi.tool"),
			MaxResults: viper.GetInt("ncbi.max_results"),
		},
		DataDir: viper.GetString("data_dir"),
		OnError: policy,
		Resume:  viper.GetBool("resume"),
	}, nil
}

// baseOptions reads the dataset-naming flags shared by data and net.
func baseOptions(cmd *cobra.Command) (methnet.Options, error) {
	query, _ := cmd.Flags().GetString("query")
	methods, _ := cmd.Flags().GetStringSlice("methods")
	dataID, _ := cmd.Flags().GetString("data-id")

	if strings.TrimSpace(query) == "" {
		return methnet.Options{}, fmt.Errorf("--query is required")
	}
	if dataID == "" {
		return methnet.Options{}, fmt.Errorf("--data-id is required")
	}
	var kws []string
	for _, m := range methods {
		if m = strings.TrimSpace(m); m != "" {
			kws = append(kws, m)
		}
	}
	if len(kws) == 0 {
		return methnet.Options{}, fmt.Errorf("--methods is required")
	}

	data, err := dataConfig()
	if err != nil {
		return methnet.Options{}, err
	}
	if data.NCBI.Email == "" {
		logger.Warn().Msg("no contact email configured; NCBI asks clients to send one (--email or .secrets/ncbi-email)")
	}
	if data.NCBI.APIKey == "" {
		logger.Info().Msg("no NCBI API key; limiting to 3 requests per second")
	}

	return methnet.Options{
		Query:    query,
		Keywords: kws,
		DataID:   dataID,
		Data:     data,
		Logger:   logger,
		Metrics:  metrics,
		ClientOptions: []eutils.Option{
			eutils.WithHTTPClient(newHTTPClient(data.NCBI.Timeout)),
		},
	}, nil
}
