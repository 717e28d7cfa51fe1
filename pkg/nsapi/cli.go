package nsapi

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/transforms"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "trains",
		Usage: "One-off queries against the train API",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "fetch and print the current train positions",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "train",
						Usage: "only include these train numbers",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "dump records in Go syntax instead of JSON",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 30 * time.Second,
						Usage: "overall request timeout",
					},
				},
				Action: func(c *cli.Context) error {
					if err := transforms.SetupClient(); err != nil {
						return err
					}

					ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
					defer cancel()

					client := NewClient(LoadConfig())
					response, err := client.FetchTrainLocations(ctx, c.StringSlice("train"))
					if err != nil {
						return err
					}

					records, parseErrors := TransformWithErrors(response, time.Now())
					for _, parseError := range parseErrors {
						log.Warn().Err(parseError).Msg("Skipped malformed train entry")
					}

					overrides := transforms.Default()
					for i := range records {
						overrides.Apply(&records[i])
					}

					log.Info().Int("trains", len(records)).Str("transport", client.ActiveTransport().Name()).Msg("Fetched train positions")

					return printResult(records, c.Bool("pretty"))
				},
			},
			{
				Name:      "journey",
				Usage:     "look up the next stop and delay of one or more trains",
				ArgsUsage: "<train number>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "dump results in Go syntax instead of JSON",
					},
				},
				Action: func(c *cli.Context) error {
					trainNumbers := c.Args().Slice()
					if len(trainNumbers) == 0 {
						return errors.New("at least one train number is required")
					}

					client := NewClient(LoadConfig())
					if problems := client.Validate(); len(problems) > 0 {
						return &ConfigurationError{Problems: problems}
					}

					return printResult(LookupJourneys(c.Context, client, trainNumbers), c.Bool("pretty"))
				},
			},
		},
	}
}

func printResult(result interface{}, prettyPrint bool) error {
	if prettyPrint {
		_, err := pretty.Println(result)
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
