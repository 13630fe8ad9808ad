package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Backend    *string          `json:"backend"`
	AutoSwitch *jsoncAutoSwitch `json:"auto_switch"`
	Priority   *jsoncPriority   `json:"priority"`
	Store      *jsoncStore      `json:"store"`
	Monitor    *jsoncMonitor    `json:"monitor"`
	Notify     *jsoncNotify     `json:"notify"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncAutoSwitch struct {
	Input  *bool `json:"input"`
	Output *bool `json:"output"`
}

type jsoncPriority struct {
	AutoMerge *bool `json:"auto_merge"`
}

type jsoncStore struct {
	Path *string `json:"path"`
}

type jsoncMonitor struct {
	PollIntervalMS *int  `json:"poll_interval_ms"`
	CallTimeoutMS  *int  `json:"call_timeout_ms"`
	WatchStore     *bool `json:"watch_store"`
}

type jsoncNotify struct {
	Enable     *bool   `json:"enable"`
	Backend    *string `json:"backend"`
	AppName    *string `json:"app_name"`
	TimeoutMS  *int    `json:"timeout_ms"`
	ThrottleMS *int    `json:"throttle_ms"`
	Sound      *bool   `json:"sound"`
	Command    *string `json:"command"`
}

type jsoncDebug struct {
	Verbose *bool `json:"verbose"`
}

// parseJSONC decodes already-normalized JSONC content over base.
func parseJSONC(normalized string, base Config) (Config, []Warning, error) {
	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Backend != nil {
		cfg.Backend = strings.ToLower(strings.TrimSpace(*payload.Backend))
	}

	if payload.AutoSwitch != nil {
		if payload.AutoSwitch.Input != nil {
			cfg.AutoSwitch.Input = *payload.AutoSwitch.Input
		}
		if payload.AutoSwitch.Output != nil {
			cfg.AutoSwitch.Output = *payload.AutoSwitch.Output
		}
	}

	if payload.Priority != nil && payload.Priority.AutoMerge != nil {
		cfg.Priority.AutoMerge = *payload.Priority.AutoMerge
	}

	if payload.Store != nil && payload.Store.Path != nil {
		cfg.Store.Path = strings.TrimSpace(*payload.Store.Path)
	}

	if payload.Monitor != nil {
		if payload.Monitor.PollIntervalMS != nil {
			cfg.Monitor.PollIntervalMS = *payload.Monitor.PollIntervalMS
		}
		if payload.Monitor.CallTimeoutMS != nil {
			cfg.Monitor.CallTimeoutMS = *payload.Monitor.CallTimeoutMS
		}
		if payload.Monitor.WatchStore != nil {
			cfg.Monitor.WatchStore = *payload.Monitor.WatchStore
		}
	}

	if payload.Notify != nil {
		n := payload.Notify
		if n.Enable != nil {
			cfg.Notify.Enable = *n.Enable
		}
		if n.Backend != nil {
			cfg.Notify.Backend = strings.ToLower(strings.TrimSpace(*n.Backend))
		}
		if n.AppName != nil {
			cfg.Notify.AppName = strings.TrimSpace(*n.AppName)
		}
		if n.TimeoutMS != nil {
			cfg.Notify.TimeoutMS = *n.TimeoutMS
		}
		if n.ThrottleMS != nil {
			cfg.Notify.ThrottleMS = *n.ThrottleMS
		}
		if n.Sound != nil {
			cfg.Notify.Sound = *n.Sound
		}
		if n.Command != nil {
			raw := *n.Command
			argv, err := splitCommand(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid notify.command: %w", err)
			}
			cfg.Notify.Command = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if payload.Debug != nil && payload.Debug.Verbose != nil {
		cfg.Debug.Verbose = *payload.Debug.Verbose
	}

	return warnings, nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
