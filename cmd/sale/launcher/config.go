package launcher

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/TalentifyApp/go-talentify-sale/integration"
	"github.com/TalentifyApp/go-talentify-sale/sale"
	"github.com/TalentifyApp/go-talentify-sale/sale/genesis"
)

// Config aggregates every subsystem's configuration the launcher needs.
// Values are resolved in order: defaults, config file, environment,
// CLI flags. Later sources win.
type Config struct {
	Sale    SaleConfig    `yaml:"sale"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Sentry  SentryConfig  `yaml:"sentry"`
}

// SaleConfig selects the deployment preset and the operator's overrides
// on top of it. Amounts are whole units; a zero keeps the preset value.
type SaleConfig struct {
	Preset      string        `yaml:"preset" env:"SALE_PRESET"`
	Owner       string        `yaml:"owner"`
	Beneficiary string        `yaml:"beneficiary"`
	Bounty      string        `yaml:"bounty"`
	Ecosystem   string        `yaml:"ecosystem"`
	Address     string        `yaml:"address"`
	Supply      uint64        `yaml:"supply"`
	Caps        CapsConfig    `yaml:"caps"`
	Rates       RatesConfig   `yaml:"rates"`
	Windows     WindowsConfig `yaml:"windows"`

	// RefundBatch caps refund transfers per settlement call. Zero means
	// unbounded; a negative value keeps the preset's limit.
	RefundBatch int `yaml:"refundBatch"`
}

// CapsConfig overrides the preset cap amounts, in whole units.
type CapsConfig struct {
	Hard    uint64 `yaml:"hard"`
	Soft    uint64 `yaml:"soft"`
	Private uint64 `yaml:"private"`
	PreSale uint64 `yaml:"preSale"`
	Total   uint64 `yaml:"total"`
}

// RatesConfig overrides the preset stage rates.
type RatesConfig struct {
	Private uint64 `yaml:"private"`
	PreICO  uint64 `yaml:"preIco"`
	ICO     uint64 `yaml:"ico"`
}

// WindowsConfig overrides the preset stage windows, RFC3339 formatted.
type WindowsConfig struct {
	PrivateEnd string `yaml:"privateEnd"`
	ICOStart   string `yaml:"icoStart"`
}

type HTTPConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addr    string   `yaml:"addr"`
	Port    int      `yaml:"port"`
	Timeout Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Port    int    `yaml:"port"`
}

type LoggingConfig struct {
	Verbosity int    `yaml:"verbosity" env:"SALE_LOG_VERBOSITY"`
	Format    string `yaml:"format"`
	Color     bool   `yaml:"color"`
}

type SentryConfig struct {
	DSN string `yaml:"dsn" env:"SALE_SENTRY_DSN"`
}

// Duration makes time.Duration round-trip through YAML as a string
// like "15s".
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MakeAllConfigs merges defaults, the optional config file, environment
// overrides and CLI flag overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to apply environment overrides")
	}
	applyFlagOverrides(ctx, &cfg)

	if _, err := integration.GetPresetByName(cfg.Sale.Preset); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrapf(err, "failed to decode config file %s", path)
	}
	return nil
}

func applyFlagOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("preset") {
		cfg.Sale.Preset = ctx.String("preset")
	}
	if ctx.IsSet("sale.owner") {
		cfg.Sale.Owner = ctx.String("sale.owner")
	}
	if ctx.IsSet("sale.beneficiary") {
		cfg.Sale.Beneficiary = ctx.String("sale.beneficiary")
	}
	if ctx.IsSet("sale.bounty") {
		cfg.Sale.Bounty = ctx.String("sale.bounty")
	}
	if ctx.IsSet("sale.ecosystem") {
		cfg.Sale.Ecosystem = ctx.String("sale.ecosystem")
	}
	if ctx.IsSet("sale.address") {
		cfg.Sale.Address = ctx.String("sale.address")
	}
	if ctx.IsSet("sale.supply") {
		cfg.Sale.Supply = ctx.Uint64("sale.supply")
	}

	if ctx.IsSet("cap.hard") {
		cfg.Sale.Caps.Hard = ctx.Uint64("cap.hard")
	}
	if ctx.IsSet("cap.soft") {
		cfg.Sale.Caps.Soft = ctx.Uint64("cap.soft")
	}
	if ctx.IsSet("cap.private") {
		cfg.Sale.Caps.Private = ctx.Uint64("cap.private")
	}
	if ctx.IsSet("cap.presale") {
		cfg.Sale.Caps.PreSale = ctx.Uint64("cap.presale")
	}
	if ctx.IsSet("cap.total") {
		cfg.Sale.Caps.Total = ctx.Uint64("cap.total")
	}
	if ctx.IsSet("rate.private") {
		cfg.Sale.Rates.Private = ctx.Uint64("rate.private")
	}
	if ctx.IsSet("rate.preico") {
		cfg.Sale.Rates.PreICO = ctx.Uint64("rate.preico")
	}
	if ctx.IsSet("rate.ico") {
		cfg.Sale.Rates.ICO = ctx.Uint64("rate.ico")
	}
	if ctx.IsSet("window.private-end") {
		cfg.Sale.Windows.PrivateEnd = ctx.String("window.private-end")
	}
	if ctx.IsSet("window.ico-start") {
		cfg.Sale.Windows.ICOStart = ctx.String("window.ico-start")
	}
	if ctx.IsSet("refund.batch") {
		cfg.Sale.RefundBatch = ctx.Int("refund.batch")
	}

	if ctx.IsSet("http") {
		cfg.HTTP.Enabled = ctx.Bool("http")
	}
	if ctx.IsSet("http.addr") {
		cfg.HTTP.Addr = ctx.String("http.addr")
	}
	if ctx.IsSet("http.port") {
		cfg.HTTP.Port = ctx.Int("http.port")
	}
	if ctx.IsSet("http.timeout") {
		cfg.HTTP.Timeout = Duration(ctx.Duration("http.timeout"))
	}
	if ctx.IsSet("metrics") {
		cfg.Metrics.Enabled = ctx.Bool("metrics")
	}
	if ctx.IsSet("metrics.addr") {
		cfg.Metrics.Addr = ctx.String("metrics.addr")
	}
	if ctx.IsSet("metrics.port") {
		cfg.Metrics.Port = ctx.Int("metrics.port")
	}

	if ctx.IsSet("log.format") {
		cfg.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("sentry.dsn") {
		cfg.Sentry.DSN = ctx.String("sentry.dsn")
	}
}

// BuildRules resolves the effective sale rules: the preset's numbers
// with the operator's overrides applied on top.
func BuildRules(sc SaleConfig) (sale.Rules, error) {
	preset, err := integration.GetPresetByName(sc.Preset)
	if err != nil {
		return sale.Rules{}, err
	}
	rules := preset.Rules

	if sc.Caps.Hard > 0 {
		rules.Caps.HardCap = wholeUnits(sc.Caps.Hard)
	}
	if sc.Caps.Soft > 0 {
		rules.Caps.SoftCap = wholeUnits(sc.Caps.Soft)
	}
	if sc.Caps.Private > 0 {
		rules.Caps.PrivateSaleCap = wholeUnits(sc.Caps.Private)
	}
	if sc.Caps.PreSale > 0 {
		rules.Caps.PreSaleCap = wholeUnits(sc.Caps.PreSale)
	}
	if sc.Caps.Total > 0 {
		rules.Caps.TotalSaleCap = wholeUnits(sc.Caps.Total)
	}

	if sc.Rates.Private > 0 {
		rules.Rates.PrivatePreICO = sc.Rates.Private
	}
	if sc.Rates.PreICO > 0 {
		rules.Rates.PreICO = sc.Rates.PreICO
	}
	if sc.Rates.ICO > 0 {
		rules.Rates.ICO = sc.Rates.ICO
	}

	if sc.Windows.PrivateEnd != "" {
		end, err := time.Parse(time.RFC3339, sc.Windows.PrivateEnd)
		if err != nil {
			return sale.Rules{}, errors.Wrap(err, "failed to parse private stage end")
		}
		rules.Windows.PrivatePreICOEnd = end
	}
	if sc.Windows.ICOStart != "" {
		start, err := time.Parse(time.RFC3339, sc.Windows.ICOStart)
		if err != nil {
			return sale.Rules{}, errors.Wrap(err, "failed to parse ICO start")
		}
		rules.Windows.ICOStart = start
	}

	if sc.RefundBatch >= 0 {
		rules.Refunds.BatchLimit = uint32(sc.RefundBatch)
	}

	if err := rules.Validate(); err != nil {
		return sale.Rules{}, err
	}
	return rules, nil
}

// BuildGenesis resolves the deployment definition. Fake presets take
// their parties from the deterministic keyspace; otherwise every party
// address must be configured. A zero supply defaults to the smallest
// amount the rules allow.
func BuildGenesis(sc SaleConfig) (genesis.Genesis, error) {
	preset, err := integration.GetPresetByName(sc.Preset)
	if err != nil {
		return genesis.Genesis{}, err
	}
	rules, err := BuildRules(sc)
	if err != nil {
		return genesis.Genesis{}, err
	}

	g := genesis.Genesis{Rules: rules}
	if preset.Fake {
		fake := genesis.FakeGenesis()
		g.Owner = fake.Owner
		g.Beneficiary = fake.Beneficiary
		g.BountyReserve = fake.BountyReserve
		g.EcosystemReserve = fake.EcosystemReserve
		g.SaleAddress = fake.SaleAddress
	} else {
		if g.Owner, err = parseAddress("owner", sc.Owner); err != nil {
			return genesis.Genesis{}, err
		}
		if g.Beneficiary, err = parseAddress("beneficiary", sc.Beneficiary); err != nil {
			return genesis.Genesis{}, err
		}
		if g.BountyReserve, err = parseAddress("bounty", sc.Bounty); err != nil {
			return genesis.Genesis{}, err
		}
		if g.EcosystemReserve, err = parseAddress("ecosystem", sc.Ecosystem); err != nil {
			return genesis.Genesis{}, err
		}
		if g.SaleAddress, err = parseAddress("sale", sc.Address); err != nil {
			return genesis.Genesis{}, err
		}
	}

	if sc.Supply > 0 {
		g.TotalSupply = wholeUnits(sc.Supply)
	} else {
		g.TotalSupply = minimumSupply(rules)
	}

	if err := g.Validate(); err != nil {
		return genesis.Genesis{}, err
	}
	return g, nil
}

// minimumSupply is the smallest genesis supply the rules allow: the
// for-sale ceiling plus both reserves.
func minimumSupply(rules sale.Rules) *big.Int {
	supply := new(big.Int).Add(rules.Caps.TotalSaleCap, rules.Reserves.Bounty)
	return supply.Add(supply, rules.Reserves.Ecosystem)
}

func wholeUnits(n uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(n), big.NewInt(sale.CreditUnit))
}

func parseAddress(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}
