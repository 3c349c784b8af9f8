package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/kzg-ceremony/ceremony"
	"github.com/bnb-chain/kzg-ceremony/config"
	"github.com/bnb-chain/kzg-ceremony/keys"
	"github.com/bnb-chain/kzg-ceremony/log"
)

var errArguments = errors.New("please provide the correct arguments")

const configKey = "config"

// setup loads the configuration, applies the global flags and installs the logger.
func setup(cCtx *cli.Context) error {
	cfg := config.Default()
	if path := cCtx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if cCtx.IsSet(engineFlag.Name) {
		cfg.Engine = cCtx.String(engineFlag.Name)
	}
	if cCtx.IsSet(logLevelFlag.Name) {
		cfg.LogLevel = cCtx.String(logLevelFlag.Name)
	}
	if cCtx.IsSet(logJSONFlag.Name) {
		cfg.LogJSON = cCtx.Bool(logJSONFlag.Name)
	}
	if cCtx.IsSet(workersFlag.Name) {
		cfg.Workers = cCtx.Int(workersFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, err := cfg.Logger()
	if err != nil {
		return err
	}
	if cCtx.App.Metadata == nil {
		cCtx.App.Metadata = map[string]interface{}{}
	}
	cCtx.App.Metadata[configKey] = cfg
	cCtx.Context = log.ToContext(cCtx.Context, l)
	return nil
}

func newCeremony(cCtx *cli.Context) (*ceremony.Ceremony, error) {
	cfg, ok := cCtx.App.Metadata[configKey].(*config.Config)
	if !ok {
		cfg = config.Default()
	}
	return cfg.Ceremony(log.FromContextOrDefault(cCtx.Context))
}

// readSecret takes the secret from the argument, or from the first line of stdin
// when the argument is "-".
func readSecret(cCtx *cli.Context, arg string) (*ceremony.Secret, error) {
	if arg != "-" {
		return ceremony.ParseSecret(arg)
	}
	line, err := bufio.NewReader(cCtx.App.Reader).ReadString('\n')
	if err != nil && line == "" {
		return nil, errors.Wrap(ceremony.ErrInvalidSecretEncoding, "no secret on stdin")
	}
	return ceremony.ParseSecret(strings.TrimSpace(line))
}

func readTranscript(path string) (*ceremony.BatchTranscript, error) {
	var bt ceremony.BatchTranscript
	if err := ceremony.ReadFile(path, &bt); err != nil {
		return nil, err
	}
	return &bt, nil
}

func initialize(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 1 {
		return errArguments
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	outputPath := cCtx.Args().Get(0)
	return ceremony.WriteFile(outputPath, ceremony.NewBatchTranscript(c.Sizes()))
}

func current(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 2 {
		return errArguments
	}
	bt, err := readTranscript(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	bc, err := bt.Contribution()
	if err != nil {
		return err
	}
	return ceremony.WriteFile(cCtx.Args().Get(1), bc)
}

func contribute(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 4 {
		return errArguments
	}
	inputPath := cCtx.Args().Get(0)
	outputPath := cCtx.Args().Get(1)
	secret, err := readSecret(cCtx, cCtx.Args().Get(2))
	if err != nil {
		return err
	}
	defer secret.Zeroize()
	id, err := ceremony.ParseIdentity(cCtx.Args().Get(3))
	if err != nil {
		return err
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	return c.ContributeFile(inputPath, outputPath, secret, id)
}

func checkSubgroup(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 1 {
		return errArguments
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	inputPath := cCtx.Args().Get(0)
	if !cCtx.Bool(auditFlag.Name) {
		return c.CheckSubgroupFile(inputPath)
	}
	var bc ceremony.BatchContribution
	if err := ceremony.ReadFile(inputPath, &bc); err != nil {
		return err
	}
	return c.Audit(&bc)
}

func pubkeys(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 2 {
		return errArguments
	}
	secret, err := readSecret(cCtx, cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	defer secret.Zeroize()
	count, err := strconv.Atoi(cCtx.Args().Get(1))
	if err != nil {
		return err
	}
	if count < 1 {
		return errors.Errorf("count must be positive, got %d", count)
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	pks, err := c.PotPubkeys(secret, count)
	if err != nil {
		return err
	}
	for _, pk := range pks {
		fmt.Fprintln(cCtx.App.Writer, pk.String())
	}
	return nil
}

func verifyUpdate(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 3 {
		return errArguments
	}
	var prev, next ceremony.BatchContribution
	if err := ceremony.ReadFile(cCtx.Args().Get(0), &prev); err != nil {
		return err
	}
	if err := ceremony.ReadFile(cCtx.Args().Get(1), &next); err != nil {
		return err
	}
	secret, err := readSecret(cCtx, cCtx.Args().Get(2))
	if err != nil {
		return err
	}
	defer secret.Zeroize()
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	return c.VerifyUpdate(&prev, &next, secret)
}

func appendContribution(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 4 {
		return errArguments
	}
	bt, err := readTranscript(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	var bc ceremony.BatchContribution
	if err := ceremony.ReadFile(cCtx.Args().Get(1), &bc); err != nil {
		return err
	}
	id, err := ceremony.ParseIdentity(cCtx.Args().Get(2))
	if err != nil {
		return err
	}
	var ecdsa ceremony.Signature
	if err := ecdsa.UnmarshalText([]byte(cCtx.String(ecdsaFlag.Name))); err != nil {
		return err
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	next, err := c.Append(bt, &bc, id, ecdsa)
	if err != nil {
		return err
	}
	return ceremony.WriteFile(cCtx.Args().Get(3), next)
}

func verify(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 1 {
		return errArguments
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	if err := c.VerifyFile(cCtx.Args().Get(0)); err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, "transcript verified")
	return nil
}

func verifyID(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 2 {
		return errArguments
	}
	bt, err := readTranscript(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	id, err := ceremony.ParseIdentity(cCtx.Args().Get(1))
	if err != nil {
		return err
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	if err := c.VerifyWithID(bt, id); err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "%s is included\n", id)
	return nil
}

func verifySignatures(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 1 {
		return errArguments
	}
	bt, err := readTranscript(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	if err := c.VerifySignatures(bt); err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, "signatures verified")
	return nil
}

func export(cCtx *cli.Context) error {
	// sanity check
	if cCtx.Args().Len() != 3 {
		return errArguments
	}
	bt, err := readTranscript(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(cCtx.Args().Get(1))
	if err != nil {
		return err
	}
	c, err := newCeremony(cCtx)
	if err != nil {
		return err
	}
	if err := c.Verify(bt); err != nil {
		return err
	}
	return keys.Export(bt, index, cCtx.Args().Get(2), cCtx.Bool(binaryFlag.Name))
}
