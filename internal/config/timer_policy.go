package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Th3drata/Tomodoro/internal/models"
)

// TimerPolicy holds server-wide timer defaults and the upper bounds users
// may configure.
type TimerPolicy struct {
	Defaults models.TimerSettings
	Limits   models.TimerLimits
}

type yamlTimerPolicy struct {
	Defaults models.TimerSettings `yaml:"defaults"`
	Limits   models.TimerLimits   `yaml:"limits"`
}

func DefaultTimerPolicy() TimerPolicy {
	return TimerPolicy{
		Defaults: models.DefaultTimerSettings(),
		Limits:   models.DefaultTimerLimits(),
	}
}

// LoadTimerPolicy reads the policy file. A missing file yields the built-in
// policy; zero or negative values in the file are ignored.
func LoadTimerPolicy(path string) (TimerPolicy, error) {
	policy := DefaultTimerPolicy()
	if path == "" {
		return policy, nil
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return policy, fmt.Errorf("read timer policy: %w", err)
	}

	var fileData yamlTimerPolicy
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return policy, fmt.Errorf("parse timer policy yaml: %w", err)
	}

	applyYamlPolicy(&policy, fileData)
	if err := policy.Defaults.Validate(policy.Limits); err != nil {
		return DefaultTimerPolicy(), fmt.Errorf("timer policy defaults exceed limits: %w", err)
	}
	return policy, nil
}

func applyYamlPolicy(policy *TimerPolicy, fileData yamlTimerPolicy) {
	if fileData.Limits.MaxFocusMinutes > 0 {
		policy.Limits.MaxFocusMinutes = fileData.Limits.MaxFocusMinutes
	}
	if fileData.Limits.MaxBreakMinutes > 0 {
		policy.Limits.MaxBreakMinutes = fileData.Limits.MaxBreakMinutes
	}
	if fileData.Limits.MaxLongBreakMinutes > 0 {
		policy.Limits.MaxLongBreakMinutes = fileData.Limits.MaxLongBreakMinutes
	}

	if fileData.Defaults.FocusMinutes > 0 {
		policy.Defaults.FocusMinutes = fileData.Defaults.FocusMinutes
	}
	if fileData.Defaults.BreakMinutes > 0 {
		policy.Defaults.BreakMinutes = fileData.Defaults.BreakMinutes
	}
	if fileData.Defaults.LongBreakMinutes > 0 {
		policy.Defaults.LongBreakMinutes = fileData.Defaults.LongBreakMinutes
	}
}
