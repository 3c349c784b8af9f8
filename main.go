package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "ceremony layout and settings, in TOML",
		EnvVars: []string{"KZG_CEREMONY_CONFIG"},
	}
	engineFlag = &cli.StringFlag{
		Name:  "engine",
		Usage: "pairing engine: gnark or kyber",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "log in JSON",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "goroutines used by the parallel checks, 0 for one per CPU",
	}
	auditFlag = &cli.BoolFlag{
		Name:  "audit",
		Usage: "report every failing point instead of the first one",
	}
	ecdsaFlag = &cli.StringFlag{
		Name:  "ecdsa",
		Usage: "hex encoded ECDSA signature of the participant, recorded as is",
	}
	binaryFlag = &cli.BoolFlag{
		Name:  "binary",
		Usage: "write a gnark-crypto SRS instead of a trusted setup text file",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "kzg-ceremony",
		Usage:     "Use this tool to contribute to and verify a KZG powers of tau ceremony",
		UsageText: "kzg-ceremony [global options] command [arguments...]",
		Flags:     []cli.Flag{configFlag, engineFlag, logLevelFlag, logJSONFlag, workersFlag},
		Before:    setup,
		Commands: []*cli.Command{
			/* ------------------------------ Coordinator ------------------------------- */
			{
				Name:        "init",
				Usage:       "init <transcript>",
				Description: "write the initial transcript of the configured sub-ceremonies",
				Aliases:     []string{"i"},
				Action:      initialize,
			},
			{
				Name:        "current",
				Usage:       "current <transcript> <contribution>",
				Description: "write the contribution the next participant starts from",
				Action:      current,
			},
			{
				Name:        "append",
				Usage:       "append <transcript> <contribution> <identity> <output>",
				Description: "check a contribution against the transcript and record it",
				Flags:       []cli.Flag{ecdsaFlag},
				Action:      appendContribution,
			},
			/* ------------------------------ Participant ------------------------------- */
			{
				Name:        "contribute",
				Usage:       "contribute <input> <output> <secret> <identity>",
				Description: "mix a secret into every sub-ceremony; a secret of - is read from stdin",
				Aliases:     []string{"c"},
				Action:      contribute,
			},
			{
				Name:   "check-subgroup",
				Usage:  "check-subgroup <contribution>",
				Flags:  []cli.Flag{auditFlag},
				Action: checkSubgroup,
			},
			{
				Name:   "pubkeys",
				Usage:  "pubkeys <secret> <count>",
				Action: pubkeys,
			},
			{
				Name:        "verify-update",
				Usage:       "verify-update <input> <output> <secret>",
				Description: "recompute a contribution from its input and secret",
				Action:      verifyUpdate,
			},
			/* -------------------------------- Verifier -------------------------------- */
			{
				Name:    "verify",
				Usage:   "verify <transcript>",
				Aliases: []string{"v"},
				Action:  verify,
			},
			{
				Name:   "verify-id",
				Usage:  "verify-id <transcript> <identity>",
				Action: verifyID,
			},
			{
				Name:        "verify-signatures",
				Usage:       "verify-signatures <transcript>",
				Description: "check the BLS signature recorded at every step against its participant",
				Action:      verifySignatures,
			},
			{
				Name:        "export",
				Usage:       "export <transcript> <index> <output>",
				Description: "verify the transcript and export one sub-ceremony as KZG parameters",
				Flags:       []cli.Flag{binaryFlag},
				Action:      export,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
