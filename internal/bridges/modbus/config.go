package modbus

import (
	"fmt"
	"strings"
	"time"

	sv "github.com/simonvetter/modbus"

	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/config"
)

// Transport modes.
const (
	ModeTCP        = "tcp"
	ModeRTU        = "rtu"
	ModeRTUOverTCP = "rtuovertcp"
)

// defaultTimeout applies when the configuration leaves the timeout unset.
const defaultTimeout = time.Second

// buildURL returns the simonvetter/modbus URL for the configured transport.
func buildURL(cfg config.ModbusConfig) (string, error) {
	switch cfg.Mode {
	case ModeTCP, ModeRTUOverTCP:
		if cfg.TCPHost == "" {
			return "", fmt.Errorf("%w: %s mode requires a host", ErrInvalidMode, cfg.Mode)
		}
		return fmt.Sprintf("%s://%s:%d", cfg.Mode, cfg.TCPHost, cfg.TCPPort), nil
	case ModeRTU:
		if cfg.RTUDevice == "" {
			return "", fmt.Errorf("%w: rtu mode requires a device", ErrInvalidMode)
		}
		return "rtu://" + cfg.RTUDevice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
}

// parseParity maps the configured parity name to the library constant.
func parseParity(p string) (uint, error) {
	switch strings.ToLower(p) {
	case "", "none", "n":
		return sv.PARITY_NONE, nil
	case "even", "e":
		return sv.PARITY_EVEN, nil
	case "odd", "o":
		return sv.PARITY_ODD, nil
	default:
		return 0, fmt.Errorf("%w: unknown parity %q", ErrInvalidMode, p)
	}
}

// clientConfiguration translates bridge config into a library configuration.
func clientConfiguration(cfg config.ModbusConfig) (*sv.ClientConfiguration, error) {
	url, err := buildURL(cfg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conf := &sv.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	}

	if cfg.Mode == ModeRTU {
		parity, err := parseParity(cfg.RTUParity)
		if err != nil {
			return nil, err
		}
		conf.Speed = uint(cfg.RTUBaud)        //nolint:gosec // validated by config
		conf.DataBits = uint(cfg.RTUDataBits) //nolint:gosec // validated by config
		conf.StopBits = uint(cfg.RTUStopBits) //nolint:gosec // validated by config
		conf.Parity = parity
	}

	return conf, nil
}
