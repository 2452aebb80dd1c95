package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/mem/membank"
)

const (
	envMaxRetries   = "COSIM_MAX_RETRIES"
	envBankCapacity = "COSIM_BANK_CAPACITY"
	envVCD          = "COSIM_VCD"
	envRecord       = "COSIM_RECORD"
)

// config is what a session is assembled from.
type config struct {
	maxRetries   int
	bankCapacity uint64
	bankBase     uint64
	vcdPath      string
	freqMHz      float64
	recordPath   string
	monitor      bool
	monitorPort  int
	openBrowser  bool
	maxPolls     int
	runs         int
}

func defaultConfig() config {
	return config{
		maxRetries:   cosim.DefaultMaxRetries,
		bankCapacity: membank.DefaultCapacity,
		bankBase:     0x10000,
		freqMHz:      300,
		maxPolls:     1000,
		runs:         1,
	}
}

func addSessionFlags(c *cobra.Command) {
	d := defaultConfig()
	f := c.Flags()

	f.Int("max-retries", d.maxRetries,
		"Cycles a register transaction may wait before timing out. "+
			"Defaults to $"+envMaxRetries+".")
	f.Uint64("bank-capacity", d.bankCapacity,
		"Capacity of the memory bank in bytes. "+
			"Defaults to $"+envBankCapacity+".")
	f.Uint64("bank-base", d.bankBase,
		"Address of the first word of the memory bank.")
	f.String("vcd", "",
		"Write a waveform to this VCD file. Defaults to $"+envVCD+".")
	f.Float64("freq", d.freqMHz,
		"Clock frequency in MHz, used for the VCD time axis.")
	f.String("record", "",
		"Record waveforms and register transactions into <record>.sqlite3. "+
			"Defaults to $"+envRecord+".")
	f.Bool("monitor", false, "Serve a monitoring page while running.")
	f.Int("monitor-port", 0, "Port of the monitoring page.")
	f.Bool("open-browser", false, "Open the monitoring page in a browser.")
	f.Int("max-polls", d.maxPolls,
		"Reads of the control register before a run is given up.")
}

// loadConfig reads the flags of c. Settings that also have an environment
// variable take it when the flag is not given.
func loadConfig(c *cobra.Command) (config, error) {
	cfg := defaultConfig()
	f := c.Flags()

	var err error

	if cfg.maxRetries, err = f.GetInt("max-retries"); err != nil {
		return cfg, err
	}

	if cfg.bankCapacity, err = f.GetUint64("bank-capacity"); err != nil {
		return cfg, err
	}

	if cfg.bankBase, err = f.GetUint64("bank-base"); err != nil {
		return cfg, err
	}

	if cfg.vcdPath, err = f.GetString("vcd"); err != nil {
		return cfg, err
	}

	if cfg.freqMHz, err = f.GetFloat64("freq"); err != nil {
		return cfg, err
	}

	if cfg.recordPath, err = f.GetString("record"); err != nil {
		return cfg, err
	}

	if cfg.monitor, err = f.GetBool("monitor"); err != nil {
		return cfg, err
	}

	if cfg.monitorPort, err = f.GetInt("monitor-port"); err != nil {
		return cfg, err
	}

	if cfg.openBrowser, err = f.GetBool("open-browser"); err != nil {
		return cfg, err
	}

	if cfg.maxPolls, err = f.GetInt("max-polls"); err != nil {
		return cfg, err
	}

	if err = applyEnv(c, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

// validate rejects settings that the builders would panic on.
func (cfg config) validate() error {
	switch {
	case cfg.maxRetries < 0:
		return fmt.Errorf("invalid max retries %d", cfg.maxRetries)
	case cfg.bankCapacity == 0:
		return fmt.Errorf("invalid bank capacity 0")
	case cfg.bankBase > ^uint64(0)-((cfg.bankCapacity-1)/8*8+7):
		return fmt.Errorf("bank of 0x%x bytes at 0x%x wraps around",
			cfg.bankCapacity, cfg.bankBase)
	case cfg.freqMHz <= 0:
		return fmt.Errorf("invalid frequency %g MHz", cfg.freqMHz)
	case cfg.maxPolls < 1:
		return fmt.Errorf("invalid max polls %d", cfg.maxPolls)
	}

	return nil
}

func applyEnv(c *cobra.Command, cfg *config) error {
	f := c.Flags()

	if v, ok := os.LookupEnv(envMaxRetries); ok && !f.Changed("max-retries") {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s %q", envMaxRetries, v)
		}

		cfg.maxRetries = n
	}

	if v, ok := os.LookupEnv(envBankCapacity); ok &&
		!f.Changed("bank-capacity") {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("invalid %s %q", envBankCapacity, v)
		}

		cfg.bankCapacity = n
	}

	if v, ok := os.LookupEnv(envVCD); ok && !f.Changed("vcd") {
		cfg.vcdPath = v
	}

	if v, ok := os.LookupEnv(envRecord); ok && !f.Changed("record") {
		cfg.recordPath = v
	}

	return nil
}
