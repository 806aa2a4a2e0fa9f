package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// RuleFlags isolates the sale rule overrides. A zero value keeps the
// preset's number; amounts are given in whole units.
func RuleFlags() []cli.Flag {
	return []cli.Flag{
		cli.Uint64Flag{
			Name:  "cap.hard",
			Usage: "Campaign-wide value ceiling, in whole value units",
		},
		cli.Uint64Flag{
			Name:  "cap.soft",
			Usage: "Private stage funding goal, in whole credits",
		},
		cli.Uint64Flag{
			Name:  "cap.private",
			Usage: "Private stage sale ceiling, in whole credits",
		},
		cli.Uint64Flag{
			Name:  "cap.presale",
			Usage: "Pre-ICO stage sale ceiling, in whole credits",
		},
		cli.Uint64Flag{
			Name:  "cap.total",
			Usage: "For-sale credit ceiling across all stages, in whole credits",
		},
		cli.Uint64Flag{
			Name:  "rate.private",
			Usage: "Credits delivered per value unit during the private stage",
		},
		cli.Uint64Flag{
			Name:  "rate.preico",
			Usage: "Credits delivered per value unit during the pre-ICO stage",
		},
		cli.Uint64Flag{
			Name:  "rate.ico",
			Usage: "Credits delivered per value unit during the ICO stage",
		},
		cli.StringFlag{
			Name:  "window.private-end",
			Usage: "End of the private stage window (RFC3339)",
		},
		cli.StringFlag{
			Name:  "window.ico-start",
			Usage: "Scheduled start of the ICO stage (RFC3339)",
		},
		cli.IntFlag{
			Name:  "refund.batch",
			Usage: "Refund transfers attempted per settlement call (0 = unbounded, negative keeps the preset)",
			Value: -1,
		},
	}
}
