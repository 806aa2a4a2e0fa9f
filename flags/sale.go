package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// SaleFlags holds the deployment identity of the campaign: the preset,
// the party addresses and the minted credit supply.
func SaleFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "preset",
			Usage: "Deployment preset to start from (main|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "sale.owner",
			Usage: "Hex address authorized for rate, stage and settlement operations",
		},
		cli.StringFlag{
			Name:  "sale.beneficiary",
			Usage: "Hex address receiving the held value on payout",
		},
		cli.StringFlag{
			Name:  "sale.bounty",
			Usage: "Hex address receiving the bounty credit reserve",
		},
		cli.StringFlag{
			Name:  "sale.ecosystem",
			Usage: "Hex address receiving the ecosystem credit reserve",
		},
		cli.StringFlag{
			Name:  "sale.address",
			Usage: "Hex address of the campaign account itself",
		},
		cli.Uint64Flag{
			Name:  "sale.supply",
			Usage: "Credits minted to the campaign account, in whole credits (0 = sale ceiling plus reserves)",
		},
	}
}
