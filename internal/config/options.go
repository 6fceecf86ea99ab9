package config

import (
	"time"

	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/apply"
	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/listing"
	"github.com/jonathan/apply-agent/internal/monitor"
	"github.com/jonathan/apply-agent/internal/retry"
)

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Policy overlays the non-zero fields on base
func (p PolicyConfig) Policy(base retry.Policy) retry.Policy {
	if p.MaxAttempts > 0 {
		base.MaxAttempts = p.MaxAttempts
	}
	if p.BaseDelayMs > 0 {
		base.BaseDelay = millis(p.BaseDelayMs)
	}
	if p.Multiplier > 0 {
		base.BackoffMultiplier = p.Multiplier
	}
	if p.MaxDelayMs > 0 {
		base.MaxDelay = millis(p.MaxDelayMs)
	}
	if p.Jitter > 0 {
		base.Jitter = p.Jitter
	}
	if p.TimeoutMs > 0 {
		base.Timeout = millis(p.TimeoutMs)
	}
	return base
}

// SkipList returns the labels of pre-filled fields
func (c *Config) SkipList() answers.SkipList {
	return answers.SkipList(c.Questions.Skip)
}

// DefaultAnswers returns the keyword rules
func (c *Config) DefaultAnswers() answers.Defaults {
	return answers.Defaults(c.Questions.Defaults)
}

// Bounds returns the profile ranges with the configured scroll speeds
func (c *Config) Bounds() behavior.Bounds {
	b := behavior.DefaultBounds()
	b.ScrollSpeed = behavior.Range{Min: float64(c.Scroll.MinSpeed), Max: float64(c.Scroll.MaxSpeed)}
	return b
}

// PacerOptions returns the pacer knobs
func (c *Config) PacerOptions() behavior.PacerOptions {
	o := behavior.DefaultPacerOptions()
	o.Fatigue = c.Behavior.Fatigue
	o.MaxFatigue = c.Behavior.MaxFatigue
	o.TimeOfDay = c.Behavior.TimeOfDay
	o.ScrollJitter = c.Scroll.Jitter
	o.BackwardEvery = c.Scroll.BackwardEvery
	o.BackwardRange = behavior.IntRange{Min: c.Scroll.BackwardMin, Max: c.Scroll.BackwardMax}
	return o
}

// BrowserOptions returns the Chrome launch options
func (c *Config) BrowserOptions() browser.Options {
	o := browser.DefaultOptions()
	o.Headless = c.Headless
	o.UserDataDir = c.UserDataDir
	return o
}

// MonitorOptions returns the liveness check options
func (c *Config) MonitorOptions() monitor.Options {
	o := monitor.DefaultOptions()
	o.Interval = seconds(c.Monitor.IntervalSec)
	o.Threshold = c.Monitor.Threshold
	o.Warmup = seconds(c.Monitor.WarmupSec)
	return o
}

// ListingOptions returns the scanner options
func (c *Config) ListingOptions() listing.Options {
	o := listing.DefaultOptions()
	o.SearchURL = c.SearchURL
	o.StallPasses = c.Scroll.StallPasses
	o.MaxPasses = c.Scroll.MaxPasses
	if settle := millis(c.Scroll.SettleMs); settle > 0 {
		o.SettleMin = settle
		if o.SettleMax < settle {
			o.SettleMax = 2 * settle
		}
	}
	o.Policy = c.Retry.Navigation.Policy(o.Policy)
	return o
}

// ApplyOptions returns the step machine options
func (c *Config) ApplyOptions() apply.Options {
	o := apply.DefaultOptions()
	o.MaxSteps = c.MaxSteps
	o.SkipList = c.SkipList()
	o.ResumePath = c.ResumePath
	o.Click = c.Retry.Click.Policy(o.Click)
	o.Fill = c.Retry.Fill.Policy(o.Fill)
	o.Wait.Timeout = seconds(c.Timeouts.ModalSec)
	return o
}

// EngineOptions returns the run options
func (c *Config) EngineOptions() engine.Options {
	o := engine.DefaultOptions()
	o.MaxItems = c.MaxItems
	o.BetweenMin = seconds(c.Delays.BetweenListingsMinSec)
	o.BetweenMax = seconds(c.Delays.BetweenListingsMaxSec)
	o.Monitoring = c.MonitoringEnabled
	o.Grace = seconds(c.Monitor.GraceSec)
	o.LoginTimeout = seconds(c.Timeouts.LoginSec)
	o.Navigation.Timeout = seconds(c.Timeouts.NavigationSec)
	o.Navigation = c.Retry.Navigation.Policy(o.Navigation)
	o.Click = c.Retry.Click.Policy(o.Click)
	o.Fill = c.Retry.Fill.Policy(o.Fill)
	return o
}
